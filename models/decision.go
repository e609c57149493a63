package models

import "time"

// DecisionType identifies a triage or editorial decision.
type DecisionType string

const (
	DecisionTriageApprove        DecisionType = "triage_approve"
	DecisionTriageRequestChanges DecisionType = "triage_request_changes"
	DecisionTriageDeskReject     DecisionType = "triage_desk_reject"
	DecisionAccept               DecisionType = "accept"
	DecisionMinorRevision        DecisionType = "minor_revision"
	DecisionMajorRevision        DecisionType = "major_revision"
	DecisionReject               DecisionType = "reject"
)

// Valid reports whether t is a known decision type.
func (t DecisionType) Valid() bool {
	switch t {
	case DecisionTriageApprove, DecisionTriageRequestChanges, DecisionTriageDeskReject,
		DecisionAccept, DecisionMinorRevision, DecisionMajorRevision, DecisionReject:
		return true
	}
	return false
}

// IsTriage reports whether the decision is taken at triage.
func (t DecisionType) IsTriage() bool {
	return t == DecisionTriageApprove || t == DecisionTriageRequestChanges || t == DecisionTriageDeskReject
}

// Decision is an append-only record of an editorial decision.
type Decision struct {
	DecisionID     uint         `gorm:"primaryKey;column:decision_id" json:"decision_id"`
	ManuscriptID   uint         `gorm:"column:manuscript_id;index" json:"manuscript_id"`
	EditorID       uint         `gorm:"column:editor_id" json:"editor_id"`
	DecisionType   DecisionType `gorm:"column:decision_type;size:50" json:"decision_type"`
	DecisionLetter string       `gorm:"column:decision_letter;type:text" json:"decision_letter"`
	InternalNotes  string       `gorm:"column:internal_notes;type:text" json:"internal_notes,omitempty"`
	CreatedAt      time.Time    `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table name for Decision.
func (Decision) TableName() string {
	return "decisions"
}
