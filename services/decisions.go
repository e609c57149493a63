package services

import (
	"context"
	"strings"
	"time"

	"journal-review-api/models"
)

// recordDecision appends a decision row. It must run in the same unit of work
// as the stage update it justifies.
func recordDecision(repo Repository, actor Actor, m *models.Manuscript, t models.DecisionType, letter, notes string, at time.Time) (*models.Decision, error) {
	if !t.Valid() {
		return nil, validation("unknown decision type %q", t)
	}
	d := &models.Decision{
		ManuscriptID:   m.ManuscriptID,
		EditorID:       actor.UserID,
		DecisionType:   t,
		DecisionLetter: strings.TrimSpace(letter),
		InternalNotes:  strings.TrimSpace(notes),
		CreatedAt:      at,
	}
	if err := repo.AppendDecision(d); err != nil {
		return nil, err
	}
	return d, nil
}

// DecisionView is a decision as shown to a particular actor.
type DecisionView struct {
	DecisionID     uint                `json:"decision_id"`
	ManuscriptID   uint                `json:"manuscript_id"`
	EditorID       uint                `json:"editor_id,omitempty"`
	DecisionType   models.DecisionType `json:"decision_type"`
	DecisionLetter string              `json:"decision_letter"`
	InternalNotes  string              `json:"internal_notes,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// DecisionService exposes the decision ledger. Writes go through the workflow
// so the decision and the stage change always commit together.
type DecisionService struct {
	store    Store
	workflow *WorkflowService
}

func NewDecisionService(store Store, workflow *WorkflowService) *DecisionService {
	return &DecisionService{store: store, workflow: workflow}
}

// Record appends a decision and applies the stage change it drives.
func (s *DecisionService) Record(ctx context.Context, actor Actor, manuscriptID uint, t models.DecisionType, letter, notes string) (*TransitionResult, error) {
	if !t.Valid() {
		return nil, validation("unknown decision type %q", t)
	}
	if t.IsTriage() {
		return s.workflow.TriageDecision(ctx, actor, manuscriptID, t, letter, notes)
	}
	return s.workflow.EditorDecision(ctx, actor, manuscriptID, t, letter, notes)
}

// List returns the manuscript's decisions in order. Authors see letters only;
// internal notes are limited to actors who make decisions.
func (s *DecisionService) List(ctx context.Context, actor Actor, manuscriptID uint) ([]DecisionView, error) {
	var views []DecisionView
	err := s.store.Read(ctx, func(repo Repository) error {
		m, err := repo.GetManuscript(manuscriptID)
		if err != nil {
			return wrapRepoErr(err, "manuscript", manuscriptID)
		}
		isAuthor := m.AuthorID == actor.UserID
		if !isAuthor && !actor.Can(CapViewAllManuscripts) {
			return unauthorized("decisions of manuscript %d are not visible to you", manuscriptID)
		}
		rows, err := repo.ListDecisions(manuscriptID)
		if err != nil {
			return err
		}
		withNotes := !isAuthor && actor.Can(CapMakeDecisions)
		views = make([]DecisionView, 0, len(rows))
		for _, d := range rows {
			v := DecisionView{
				DecisionID:     d.DecisionID,
				ManuscriptID:   d.ManuscriptID,
				DecisionType:   d.DecisionType,
				DecisionLetter: d.DecisionLetter,
				CreatedAt:      d.CreatedAt,
			}
			if withNotes {
				v.EditorID = d.EditorID
				v.InternalNotes = d.InternalNotes
			}
			views = append(views, v)
		}
		return nil
	})
	return views, err
}
