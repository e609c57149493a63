package models

import "time"

// StageTransition tracks historical stage changes for manuscripts.
type StageTransition struct {
	TransitionID uint            `gorm:"primaryKey;column:transition_id" json:"transition_id"`
	ManuscriptID uint            `gorm:"column:manuscript_id;index" json:"manuscript_id"`
	FromStage    ManuscriptStage `gorm:"column:from_stage;size:20" json:"from_stage"`
	ToStage      ManuscriptStage `gorm:"column:to_stage;size:20" json:"to_stage"`
	Trigger      string          `gorm:"column:trigger_name;size:50" json:"trigger"`
	ChangedBy    uint            `gorm:"column:changed_by" json:"changed_by"`
	DecisionID   *uint           `gorm:"column:decision_id" json:"decision_id,omitempty"`
	Notes        *string         `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt    time.Time       `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table for StageTransition.
func (StageTransition) TableName() string {
	return "stage_transitions"
}
