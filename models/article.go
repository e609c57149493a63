package models

import "time"

// Article is the published companion of an accepted manuscript.
type Article struct {
	ArticleID          uint       `gorm:"primaryKey;column:article_id" json:"article_id"`
	SourceManuscriptID uint       `gorm:"column:source_manuscript_id;uniqueIndex" json:"source_manuscript_id"`
	Title              string     `gorm:"column:title;size:500" json:"title"`
	Excerpt            string     `gorm:"column:excerpt;type:text" json:"excerpt"`
	AuthorID           uint       `gorm:"column:author_id" json:"author_id"`
	AuthorDisplay      string     `gorm:"column:author_display;size:255" json:"author_display"`
	PDFRef             string     `gorm:"column:pdf_ref;size:255" json:"pdf_ref,omitempty"`
	LatexRef           string     `gorm:"column:latex_ref;size:255" json:"latex_ref,omitempty"`
	CarRef             string     `gorm:"column:car_ref;size:255" json:"car_ref,omitempty"`
	DOI                string     `gorm:"column:doi;size:100" json:"doi"`
	Status             string     `gorm:"column:status;size:20;default:'draft'" json:"status"`
	PublicationDate    *time.Time `gorm:"column:publication_date" json:"publication_date,omitempty"`
	CreatedAt          time.Time  `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table name for Article.
func (Article) TableName() string {
	return "articles"
}
