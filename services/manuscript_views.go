package services

import (
	"context"
	"time"

	"journal-review-api/models"
)

// ManuscriptView is a manuscript projected through access control for one actor.
type ManuscriptView struct {
	ManuscriptID        uint                   `json:"manuscript_id"`
	Title               string                 `json:"title"`
	Stage               models.ManuscriptStage `json:"stage"`
	ArticleType         string                 `json:"article_type"`
	Abstract            string                 `json:"abstract"`
	Keywords            string                 `json:"keywords"`
	CodeRepo            string                 `json:"code_repo,omitempty"`
	DataRepo            string                 `json:"data_repo,omitempty"`
	AIStatement         string                 `json:"ai_statement,omitempty"`
	AuthorID            *uint                  `json:"author_id,omitempty"`
	AuthorName          string                 `json:"author_name,omitempty"`
	Conflicts           string                 `json:"conflicts,omitempty"`
	CoverLetter         string                 `json:"cover_letter,omitempty"`
	TriageDeadline      *time.Time             `json:"triage_deadline,omitempty"`
	TriageDecision      string                 `json:"triage_decision,omitempty"`
	EditorDecision      string                 `json:"editor_decision,omitempty"`
	RevisionCount       int                    `json:"revision_count"`
	RevisionType        models.RevisionType    `json:"revision_type,omitempty"`
	LatestRevisionNotes string                 `json:"latest_revision_notes,omitempty"`
	SubmittedAt         time.Time              `json:"submitted_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
	// Artifacts lists the file artifacts present on the manuscript that the actor may open.
	Artifacts []models.ArtifactKind `json:"artifacts"`
}

// ProjectManuscript redacts m for actor. Identity-bearing fields are only
// filled when author-identity is visible.
func ProjectManuscript(actor Actor, m *models.Manuscript, assigned bool) ManuscriptView {
	v := ManuscriptView{
		ManuscriptID:   m.ManuscriptID,
		Title:          m.Title,
		Stage:          m.Stage,
		ArticleType:    m.ArticleType,
		Abstract:       m.Abstract,
		Keywords:       m.Keywords,
		CodeRepo:       m.CodeRepo,
		DataRepo:       m.DataRepo,
		AIStatement:    m.AIStatement,
		TriageDeadline: m.TriageDeadline,
		TriageDecision: m.TriageDecision,
		EditorDecision: m.EditorDecision,
		RevisionCount:  m.RevisionCount,
		RevisionType:   m.RevisionType,
		SubmittedAt:    m.SubmittedAt,
		UpdatedAt:      m.UpdatedAt,
		Artifacts:      []models.ArtifactKind{},
	}
	if CanView(actor, m, models.ArtifactAuthorIdentity, assigned) {
		authorID := m.AuthorID
		v.AuthorID = &authorID
		v.Conflicts = m.Conflicts
		v.CoverLetter = m.CoverLetter
		v.LatestRevisionNotes = m.LatestRevisionNotes
	}
	for _, kind := range models.FileArtifactKinds {
		if m.ArtifactRef(kind) != "" && CanView(actor, m, kind, assigned) {
			v.Artifacts = append(v.Artifacts, kind)
		}
	}
	return v
}

// redactArtifacts blanks the references the actor may not open on m.
func redactArtifacts(actor Actor, m *models.Manuscript, set models.ArtifactSet, assigned bool) models.ArtifactSet {
	out := models.ArtifactSet{}
	if CanView(actor, m, models.ArtifactBlindedFile, assigned) {
		out.Blinded = set.Blinded
	}
	if CanView(actor, m, models.ArtifactFullFile, assigned) {
		out.Full = set.Full
	}
	if CanView(actor, m, models.ArtifactLatex, assigned) {
		out.Latex = set.Latex
	}
	if CanView(actor, m, models.ArtifactCar, assigned) {
		out.Car = set.Car
	}
	return out
}

// ListQuery narrows ListManuscripts.
type ListQuery struct {
	Stage  models.ManuscriptStage
	Limit  int
	Offset int
}

// GetManuscript returns the manuscript as visible to actor.
func (s *WorkflowService) GetManuscript(ctx context.Context, actor Actor, manuscriptID uint) (*ManuscriptView, error) {
	var (
		view     ManuscriptView
		authorID uint
	)
	err := s.store.Read(ctx, func(repo Repository) error {
		m, err := repo.GetManuscript(manuscriptID)
		if err != nil {
			return wrapRepoErr(err, "manuscript", manuscriptID)
		}
		assigned, err := isAssigned(repo, actor, manuscriptID)
		if err != nil {
			return err
		}
		if !CanView(actor, m, models.ArtifactMetadata, assigned) {
			return unauthorized("manuscript %d is not visible to you", manuscriptID)
		}
		view = ProjectManuscript(actor, m, assigned)
		authorID = m.AuthorID
		return nil
	})
	if err != nil {
		return nil, err
	}
	if view.AuthorID != nil && s.users != nil {
		if author, err := s.users.GetUser(ctx, authorID); err == nil {
			view.AuthorName = author.Name()
		}
	}
	return &view, nil
}

// ListManuscripts lists manuscripts by role: all for editorial roles, assigned
// ones for reviewers, own ones for authors.
func (s *WorkflowService) ListManuscripts(ctx context.Context, actor Actor, q ListQuery) ([]ManuscriptView, error) {
	if q.Stage != stageNone && !q.Stage.Valid() {
		return nil, validation("unknown stage %q", q.Stage)
	}
	filter := ManuscriptFilter{Limit: q.Limit, Offset: q.Offset}
	if q.Stage != stageNone {
		filter.Stages = []models.ManuscriptStage{q.Stage}
	}
	assigned := false
	switch {
	case actor.Can(CapViewAllManuscripts):
	case actor.Can(CapViewAssignedManuscripts):
		filter.ReviewerID = actor.UserID
		assigned = true
	case actor.Can(CapViewOwnManuscripts):
		filter.AuthorID = actor.UserID
	default:
		return nil, unauthorized("you may not list manuscripts")
	}

	var views []ManuscriptView
	err := s.store.Read(ctx, func(repo Repository) error {
		rows, err := repo.ListManuscripts(filter)
		if err != nil {
			return err
		}
		views = make([]ManuscriptView, 0, len(rows))
		for i := range rows {
			views = append(views, ProjectManuscript(actor, &rows[i], assigned))
		}
		return nil
	})
	return views, err
}

// ManuscriptHistory is the stage log and revision history of a manuscript.
type ManuscriptHistory struct {
	Transitions []models.StageTransition `json:"transitions"`
	Revisions   []RevisionView           `json:"revisions"`
}

// RevisionView is a revision history entry with artifact references redacted.
type RevisionView struct {
	RevisionNumber int                    `json:"revision_number"`
	Notes          string                 `json:"notes,omitempty"`
	PriorArtifacts models.ArtifactSet     `json:"prior_artifacts"`
	NewArtifacts   models.ArtifactSet     `json:"new_artifacts"`
	ReturnedTo     models.ManuscriptStage `json:"returned_to"`
	UploadedAt     time.Time              `json:"uploaded_at"`
}

// History returns the manuscript's transitions and revisions to its author
// and to editorial roles.
func (s *WorkflowService) History(ctx context.Context, actor Actor, manuscriptID uint) (*ManuscriptHistory, error) {
	var out ManuscriptHistory
	err := s.store.Read(ctx, func(repo Repository) error {
		m, err := repo.GetManuscript(manuscriptID)
		if err != nil {
			return wrapRepoErr(err, "manuscript", manuscriptID)
		}
		if m.AuthorID != actor.UserID && !actor.Can(CapViewAllManuscripts) {
			return unauthorized("history of manuscript %d is not visible to you", manuscriptID)
		}
		transitions, err := repo.ListTransitions(manuscriptID)
		if err != nil {
			return err
		}
		revisions, err := repo.ListRevisions(manuscriptID)
		if err != nil {
			return err
		}
		identity := CanView(actor, m, models.ArtifactAuthorIdentity, false)
		if !identity {
			// Submissions and revision uploads are made by the author.
			for i := range transitions {
				if transitions[i].ChangedBy == m.AuthorID {
					transitions[i].ChangedBy = 0
				}
			}
		}
		out.Transitions = transitions
		out.Revisions = make([]RevisionView, 0, len(revisions))
		for _, rev := range revisions {
			v := RevisionView{
				RevisionNumber: rev.RevisionNumber,
				PriorArtifacts: redactArtifacts(actor, m, rev.PriorArtifacts.Data(), false),
				NewArtifacts:   redactArtifacts(actor, m, rev.NewArtifacts.Data(), false),
				ReturnedTo:     rev.ReturnedTo,
				UploadedAt:     rev.UploadedAt,
			}
			if identity {
				v.Notes = rev.Notes
			}
			out.Revisions = append(out.Revisions, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
