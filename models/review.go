package models

import "time"

// ReviewStatus is the lifecycle status of a review invitation.
type ReviewStatus string

const (
	ReviewPending    ReviewStatus = "pending"
	ReviewInProgress ReviewStatus = "in_progress"
	ReviewCompleted  ReviewStatus = "completed"
	ReviewDeclined   ReviewStatus = "declined"
)

// ActiveReviewStatuses are the non-terminal statuses.
var ActiveReviewStatuses = []ReviewStatus{ReviewPending, ReviewInProgress}

// Terminal reports whether no further status change is possible.
func (s ReviewStatus) Terminal() bool {
	return s == ReviewCompleted || s == ReviewDeclined
}

// Recommendation is the reviewer's recommendation to the editor.
type Recommendation string

const (
	RecommendAccept         Recommendation = "accept"
	RecommendMinorRevision  Recommendation = "minor_revision"
	RecommendMajorRevision  Recommendation = "major_revision"
	RecommendRejectResubmit Recommendation = "reject_resubmit"
	RecommendReject         Recommendation = "reject"
)

// Valid reports whether r is one of the fixed recommendation values.
func (r Recommendation) Valid() bool {
	switch r {
	case RecommendAccept, RecommendMinorRevision, RecommendMajorRevision, RecommendRejectResubmit, RecommendReject:
		return true
	}
	return false
}

// Review is one reviewer's assignment on one manuscript for one round.
type Review struct {
	ReviewID     uint `gorm:"primaryKey;column:review_id" json:"review_id"`
	ManuscriptID uint `gorm:"column:manuscript_id;index" json:"manuscript_id"`
	ReviewerID   uint `gorm:"column:reviewer_id;index" json:"reviewer_id"`
	EditorID     uint `gorm:"column:editor_id" json:"editor_id"`
	ReviewRound  int  `gorm:"column:review_round" json:"review_round"`

	RelevanceScore   *int `gorm:"column:relevance_score" json:"relevance_score"`
	SoundnessScore   *int `gorm:"column:soundness_score" json:"soundness_score"`
	ClarityScore     *int `gorm:"column:clarity_score" json:"clarity_score"`
	OpenScienceScore *int `gorm:"column:openscience_score" json:"openscience_score"`
	ImpactScore      *int `gorm:"column:impact_score" json:"impact_score,omitempty"`
	ProvenanceScore  *int `gorm:"column:provenance_score" json:"provenance_score,omitempty"`

	CommentsToAuthor string         `gorm:"column:comments_to_author;type:text" json:"comments_to_author"`
	CommentsToEditor string         `gorm:"column:comments_to_editor;type:text" json:"comments_to_editor,omitempty"`
	Recommendation   Recommendation `gorm:"column:recommendation;size:50" json:"recommendation,omitempty"`

	Status      ReviewStatus `gorm:"column:status;size:20;index" json:"status"`
	DueDate     time.Time    `gorm:"column:due_date" json:"due_date"`
	RespondedAt *time.Time   `gorm:"column:responded_at" json:"responded_at,omitempty"`
	SubmittedAt *time.Time   `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreatedAt   time.Time    `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table name for Review.
func (Review) TableName() string {
	return "reviews"
}
