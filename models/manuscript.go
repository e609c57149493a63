package models

import (
	"time"

	"gorm.io/datatypes"
)

// ManuscriptStage is the current workflow stage of a manuscript.
type ManuscriptStage string

const (
	StageTriage    ManuscriptStage = "triage"
	StageReview    ManuscriptStage = "review"
	StageRevision  ManuscriptStage = "revision"
	StageAccepted  ManuscriptStage = "accepted"
	StageRejected  ManuscriptStage = "rejected"
	StagePublished ManuscriptStage = "published"
)

// AllStages lists every stage in workflow order.
var AllStages = []ManuscriptStage{
	StageTriage,
	StageReview,
	StageRevision,
	StageAccepted,
	StageRejected,
	StagePublished,
}

// Valid reports whether s is one of the six workflow stages.
func (s ManuscriptStage) Valid() bool {
	switch s {
	case StageTriage, StageReview, StageRevision, StageAccepted, StageRejected, StagePublished:
		return true
	}
	return false
}

// Terminal reports whether the stage has no outgoing transitions.
func (s ManuscriptStage) Terminal() bool {
	return s == StageRejected || s == StagePublished
}

// RevisionType records which stage a pending revision returns to.
type RevisionType string

const (
	RevisionTypeNone   RevisionType = ""
	RevisionTypeTriage RevisionType = "triage"
	RevisionTypeReview RevisionType = "review"
)

// ArtifactKind names something about a manuscript that access control rules over.
type ArtifactKind string

const (
	ArtifactMetadata       ArtifactKind = "metadata"
	ArtifactAuthorIdentity ArtifactKind = "author-identity"
	ArtifactBlindedFile    ArtifactKind = "blinded-file"
	ArtifactFullFile       ArtifactKind = "full-file"
	ArtifactLatex          ArtifactKind = "latex"
	ArtifactCar            ArtifactKind = "car"
)

// FileArtifactKinds are the four artifact slots stored on a manuscript.
var FileArtifactKinds = []ArtifactKind{ArtifactBlindedFile, ArtifactFullFile, ArtifactLatex, ArtifactCar}

// IsFile reports whether the kind is backed by a stored artifact.
func (k ArtifactKind) IsFile() bool {
	switch k {
	case ArtifactBlindedFile, ArtifactFullFile, ArtifactLatex, ArtifactCar:
		return true
	}
	return false
}

// Valid reports whether k is a known artifact kind.
func (k ArtifactKind) Valid() bool {
	return k == ArtifactMetadata || k == ArtifactAuthorIdentity || k.IsFile()
}

// ArtifactSet holds references to the four manuscript artifact slots.
type ArtifactSet struct {
	Blinded string `json:"blinded,omitempty"`
	Full    string `json:"full,omitempty"`
	Latex   string `json:"latex,omitempty"`
	Car     string `json:"car,omitempty"`
}

// Get returns the reference stored for a file kind.
func (a ArtifactSet) Get(kind ArtifactKind) string {
	switch kind {
	case ArtifactBlindedFile:
		return a.Blinded
	case ArtifactFullFile:
		return a.Full
	case ArtifactLatex:
		return a.Latex
	case ArtifactCar:
		return a.Car
	}
	return ""
}

// Refs returns all non-empty references.
func (a ArtifactSet) Refs() []string {
	refs := make([]string, 0, 4)
	for _, kind := range FileArtifactKinds {
		if ref := a.Get(kind); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// Manuscript is a submitted work moving through triage, review and decision.
type Manuscript struct {
	ManuscriptID uint            `gorm:"primaryKey;column:manuscript_id" json:"manuscript_id"`
	Title        string          `gorm:"column:title;size:500" json:"title"`
	AuthorID     uint            `gorm:"column:author_id;index" json:"author_id"`
	Stage        ManuscriptStage `gorm:"column:stage;size:20;index" json:"stage"`
	ArticleType  string          `gorm:"column:article_type;size:100" json:"article_type"`

	Abstract    string `gorm:"column:abstract;type:text" json:"abstract"`
	Keywords    string `gorm:"column:keywords;size:500" json:"keywords"`
	CodeRepo    string `gorm:"column:code_repo;size:500" json:"code_repo,omitempty"`
	DataRepo    string `gorm:"column:data_repo;size:500" json:"data_repo,omitempty"`
	AIStatement string `gorm:"column:ai_statement;type:text" json:"ai_statement,omitempty"`
	Conflicts   string `gorm:"column:conflicts;type:text" json:"conflicts,omitempty"`
	CoverLetter string `gorm:"column:cover_letter;type:text" json:"cover_letter,omitempty"`

	BlindedFileRef string `gorm:"column:blinded_file_ref;size:255" json:"blinded_file_ref,omitempty"`
	FullFileRef    string `gorm:"column:full_file_ref;size:255" json:"full_file_ref,omitempty"`
	LatexFileRef   string `gorm:"column:latex_file_ref;size:255" json:"latex_file_ref,omitempty"`
	CarFileRef     string `gorm:"column:car_file_ref;size:255" json:"car_file_ref,omitempty"`

	TriageDeadline  *time.Time `gorm:"column:triage_deadline" json:"triage_deadline,omitempty"`
	TriageDecision  string     `gorm:"column:triage_decision;size:50" json:"triage_decision,omitempty"`
	TriageDecidedAt *time.Time `gorm:"column:triage_decided_at" json:"triage_decided_at,omitempty"`
	TriageEditorID  *uint      `gorm:"column:triage_editor_id" json:"triage_editor_id,omitempty"`
	TriageNotes     string     `gorm:"column:triage_notes;type:text" json:"triage_notes,omitempty"`

	EditorDecision string     `gorm:"column:editor_decision;size:50" json:"editor_decision,omitempty"`
	EditorNotes    string     `gorm:"column:editor_notes;type:text" json:"editor_notes,omitempty"`
	DecisionDate   *time.Time `gorm:"column:decision_date" json:"decision_date,omitempty"`

	RevisionCount       int          `gorm:"column:revision_count;default:0" json:"revision_count"`
	RevisionType        RevisionType `gorm:"column:revision_type;size:20" json:"revision_type,omitempty"`
	LatestRevisionNotes string       `gorm:"column:latest_revision_notes;type:text" json:"latest_revision_notes,omitempty"`

	SubmittedAt time.Time `gorm:"column:submitted_at" json:"submitted_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`

	Revisions []ManuscriptRevision `gorm:"foreignKey:ManuscriptID" json:"revisions,omitempty"`
}

// TableName specifies the table name for Manuscript.
func (Manuscript) TableName() string {
	return "manuscripts"
}

// Artifacts returns the current artifact references.
func (m *Manuscript) Artifacts() ArtifactSet {
	return ArtifactSet{
		Blinded: m.BlindedFileRef,
		Full:    m.FullFileRef,
		Latex:   m.LatexFileRef,
		Car:     m.CarFileRef,
	}
}

// ApplyArtifacts replaces the slots for which set carries a reference.
func (m *Manuscript) ApplyArtifacts(set ArtifactSet) {
	if set.Blinded != "" {
		m.BlindedFileRef = set.Blinded
	}
	if set.Full != "" {
		m.FullFileRef = set.Full
	}
	if set.Latex != "" {
		m.LatexFileRef = set.Latex
	}
	if set.Car != "" {
		m.CarFileRef = set.Car
	}
}

// ArtifactRef returns the stored reference for a file kind.
func (m *Manuscript) ArtifactRef(kind ArtifactKind) string {
	return m.Artifacts().Get(kind)
}

// ManuscriptRevision is one entry of a manuscript's revision history.
type ManuscriptRevision struct {
	RevisionID     uint                             `gorm:"primaryKey;column:revision_id" json:"revision_id"`
	ManuscriptID   uint                             `gorm:"column:manuscript_id;index" json:"manuscript_id"`
	RevisionNumber int                              `gorm:"column:revision_number" json:"revision_number"`
	UploadedBy     uint                             `gorm:"column:uploaded_by" json:"uploaded_by"`
	Notes          string                           `gorm:"column:notes;type:text" json:"notes"`
	PriorArtifacts datatypes.JSONType[ArtifactSet] `gorm:"column:prior_artifacts" json:"prior_artifacts"`
	NewArtifacts   datatypes.JSONType[ArtifactSet] `gorm:"column:new_artifacts" json:"new_artifacts"`
	ReturnedTo     ManuscriptStage                  `gorm:"column:returned_to;size:20" json:"returned_to"`
	UploadedAt     time.Time                        `gorm:"column:uploaded_at" json:"uploaded_at"`
}

// TableName specifies the table name for ManuscriptRevision.
func (ManuscriptRevision) TableName() string {
	return "manuscript_revisions"
}
