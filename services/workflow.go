package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"journal-review-api/models"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Trigger is what drives a stage transition. Decision types are triggers too.
type Trigger string

const (
	TriggerSubmit         Trigger = "submit"
	TriggerRevisionUpload Trigger = "revision_upload"
	TriggerPublish        Trigger = "publish"
	TriggerStageOverride  Trigger = "stage_override"
)

const stageNone models.ManuscriptStage = ""

type transitionRule struct {
	From    models.ManuscriptStage
	Trigger Trigger
	// ReturnsVia must equal the manuscript's revision type for the rule to match.
	ReturnsVia       models.RevisionType
	To               models.ManuscriptStage
	SetsRevisionType models.RevisionType
}

var transitionTable = []transitionRule{
	{From: stageNone, Trigger: TriggerSubmit, To: models.StageTriage},

	{From: models.StageTriage, Trigger: Trigger(models.DecisionTriageApprove), To: models.StageReview},
	{From: models.StageTriage, Trigger: Trigger(models.DecisionTriageRequestChanges), To: models.StageRevision, SetsRevisionType: models.RevisionTypeTriage},
	{From: models.StageTriage, Trigger: Trigger(models.DecisionTriageDeskReject), To: models.StageRejected},

	{From: models.StageReview, Trigger: Trigger(models.DecisionAccept), To: models.StageAccepted},
	{From: models.StageReview, Trigger: Trigger(models.DecisionMinorRevision), To: models.StageRevision, SetsRevisionType: models.RevisionTypeReview},
	{From: models.StageReview, Trigger: Trigger(models.DecisionMajorRevision), To: models.StageRevision, SetsRevisionType: models.RevisionTypeReview},
	{From: models.StageReview, Trigger: Trigger(models.DecisionReject), To: models.StageRejected},

	{From: models.StageRevision, Trigger: TriggerRevisionUpload, ReturnsVia: models.RevisionTypeTriage, To: models.StageTriage},
	{From: models.StageRevision, Trigger: TriggerRevisionUpload, ReturnsVia: models.RevisionTypeReview, To: models.StageReview},

	{From: models.StageAccepted, Trigger: TriggerPublish, To: models.StagePublished},
}

func findTransition(from models.ManuscriptStage, trigger Trigger, via models.RevisionType) (transitionRule, bool) {
	for _, rule := range transitionTable {
		if rule.From == from && rule.Trigger == trigger && rule.ReturnsVia == via {
			return rule, true
		}
	}
	return transitionRule{}, false
}

// findOverride returns the decision-driven edge from one stage to another.
func findOverride(from, to models.ManuscriptStage) (transitionRule, bool) {
	for _, rule := range transitionTable {
		if rule.From == from && rule.To == to && models.DecisionType(rule.Trigger).Valid() {
			return rule, true
		}
	}
	return transitionRule{}, false
}

// NextStages lists the stages reachable from stage by any rule.
func NextStages(stage models.ManuscriptStage) []models.ManuscriptStage {
	seen := make(map[models.ManuscriptStage]bool)
	var out []models.ManuscriptStage
	for _, rule := range transitionTable {
		if rule.From == stage && !seen[rule.To] {
			seen[rule.To] = true
			out = append(out, rule.To)
		}
	}
	return out
}

// TransitionResult is the outcome of an operation that moved a manuscript.
type TransitionResult struct {
	Manuscript *models.Manuscript
	Decision   *models.Decision
	Transition *models.StageTransition
	Revision   *models.ManuscriptRevision
	Article    *models.Article
	Events     []Event
}

// SubmissionInput is a new manuscript as entered by its author.
type SubmissionInput struct {
	Title       string
	ArticleType string
	Abstract    string
	Keywords    string
	CodeRepo    string
	DataRepo    string
	AIStatement string
	Conflicts   string
	CoverLetter string
	Artifacts   models.ArtifactSet
}

func (in SubmissionInput) validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"title", in.Title},
		{"article type", in.ArticleType},
		{"abstract", in.Abstract},
		{"keywords", in.Keywords},
		{"AI statement", in.AIStatement},
		{"conflicts statement", in.Conflicts},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return validation("%s is required", f.name)
		}
	}
	return validateArtifacts(in.Artifacts)
}

// RevisionInput is a revised upload from the author.
type RevisionInput struct {
	Notes     string
	Artifacts models.ArtifactSet
}

func validateArtifacts(set models.ArtifactSet) error {
	if set.Blinded == "" {
		return validation("blinded manuscript file is required")
	}
	if set.Full == "" {
		return validation("full manuscript file is required")
	}
	if set.Latex == "" {
		return validation("LaTeX sources are required")
	}
	return nil
}

// WorkflowService owns manuscript stage transitions.
type WorkflowService struct {
	core
}

func NewWorkflowService(store Store, users UserDirectory, opts Options) *WorkflowService {
	return &WorkflowService{core: newCore(store, users, opts)}
}

// applyTransition moves m along rule, guarded by a compare-and-swap on the
// stage it was read at, and appends the transition log row.
func (s *WorkflowService) applyTransition(repo Repository, actor Actor, m *models.Manuscript, rule transitionRule, trigger Trigger, decisionID *uint, notes string, at time.Time) (*models.StageTransition, error) {
	from := m.Stage
	m.Stage = rule.To
	if rule.SetsRevisionType != models.RevisionTypeNone {
		m.RevisionType = rule.SetsRevisionType
	}
	m.UpdatedAt = at

	if err := repo.UpdateManuscript(m, from); err != nil {
		return nil, wrapRepoErr(err, "manuscript", m.ManuscriptID)
	}
	return appendTransition(repo, actor, m.ManuscriptID, from, rule.To, trigger, decisionID, notes, at)
}

func appendTransition(repo Repository, actor Actor, manuscriptID uint, from, to models.ManuscriptStage, trigger Trigger, decisionID *uint, notes string, at time.Time) (*models.StageTransition, error) {
	t := &models.StageTransition{
		ManuscriptID: manuscriptID,
		FromStage:    from,
		ToStage:      to,
		Trigger:      string(trigger),
		ChangedBy:    actor.UserID,
		DecisionID:   decisionID,
		CreatedAt:    at,
	}
	if n := strings.TrimSpace(notes); n != "" {
		t.Notes = &n
	}
	if err := repo.AppendTransition(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *WorkflowService) committed(op string, actor Actor, res *TransitionResult) {
	t := res.Transition
	s.metrics.transition(string(t.FromStage), string(t.ToStage), t.Trigger)
	if res.Decision != nil {
		s.metrics.decision(string(res.Decision.DecisionType))
	}
	s.log.Info("manuscript stage changed",
		zap.String("operation", op),
		zap.Uint("manuscript_id", t.ManuscriptID),
		zap.Uint("actor_id", actor.UserID),
		zap.String("from", string(t.FromStage)),
		zap.String("to", string(t.ToStage)),
		zap.String("trigger", t.Trigger),
	)
}

// SubmitManuscript creates a manuscript in triage owned by the actor.
func (s *WorkflowService) SubmitManuscript(ctx context.Context, actor Actor, in SubmissionInput) (*TransitionResult, error) {
	const op = "submit_manuscript"
	if err := actor.require(CapSubmitManuscripts); err != nil {
		return nil, s.reject(op, actor, err)
	}
	if err := in.validate(); err != nil {
		return nil, s.reject(op, actor, err)
	}

	now := s.now()
	deadline := now.Add(s.triageWindow)
	m := &models.Manuscript{
		Title:          strings.TrimSpace(in.Title),
		AuthorID:       actor.UserID,
		Stage:          models.StageTriage,
		ArticleType:    strings.TrimSpace(in.ArticleType),
		Abstract:       strings.TrimSpace(in.Abstract),
		Keywords:       strings.TrimSpace(in.Keywords),
		CodeRepo:       strings.TrimSpace(in.CodeRepo),
		DataRepo:       strings.TrimSpace(in.DataRepo),
		AIStatement:    strings.TrimSpace(in.AIStatement),
		Conflicts:      strings.TrimSpace(in.Conflicts),
		CoverLetter:    strings.TrimSpace(in.CoverLetter),
		TriageDeadline: &deadline,
		SubmittedAt:    now,
		UpdatedAt:      now,
	}
	m.ApplyArtifacts(in.Artifacts)

	res := &TransitionResult{Manuscript: m}
	err := s.store.Atomic(ctx, func(repo Repository) error {
		if err := repo.CreateManuscript(m); err != nil {
			return err
		}
		t, err := appendTransition(repo, actor, m.ManuscriptID, stageNone, models.StageTriage, TriggerSubmit, nil, "", now)
		if err != nil {
			return err
		}
		res.Transition = t
		return nil
	})
	if err != nil {
		return nil, s.reject(op, actor, err)
	}
	s.committed(op, actor, res)

	res.Events = []Event{{
		Kind:         EventManuscriptSubmitted,
		ManuscriptID: m.ManuscriptID,
		ActorID:      actor.UserID,
		Roles:        editorialRoles,
		Data: map[string]string{
			"title":           m.Title,
			"article_type":    m.ArticleType,
			"triage_deadline": deadline.Format(time.RFC3339),
		},
		At: now,
	}, {
		Kind:         EventManuscriptSubmitted,
		ManuscriptID: m.ManuscriptID,
		ActorID:      actor.UserID,
		UserIDs:      []uint{actor.UserID},
		Data:         map[string]string{"title": m.Title, "audience": "author"},
		At:           now,
	}}
	return res, nil
}

// TriageDecision records a triage decision and applies its transition.
func (s *WorkflowService) TriageDecision(ctx context.Context, actor Actor, manuscriptID uint, t models.DecisionType, letter, notes string) (*TransitionResult, error) {
	const op = "triage_decision"
	if err := actor.require(CapTriageManuscripts); err != nil {
		return nil, s.reject(op, actor, err)
	}
	if !t.IsTriage() {
		return nil, s.reject(op, actor, validation("%q is not a triage decision", t))
	}
	if t != models.DecisionTriageApprove && strings.TrimSpace(letter) == "" {
		return nil, s.reject(op, actor, validation("a decision letter is required for %s", t))
	}

	now := s.now()
	res := &TransitionResult{}
	err := s.store.Atomic(ctx, func(repo Repository) error {
		m, err := repo.LockManuscript(manuscriptID)
		if err != nil {
			return wrapRepoErr(err, "manuscript", manuscriptID)
		}
		rule, ok := findTransition(m.Stage, Trigger(t), models.RevisionTypeNone)
		if !ok {
			return invalidState("%s is not allowed while manuscript %d is in %s", t, manuscriptID, m.Stage)
		}
		d, err := recordDecision(repo, actor, m, t, letter, notes, now)
		if err != nil {
			return err
		}

		editorID := actor.UserID
		m.TriageDecision = string(t)
		m.TriageDecidedAt = &now
		m.TriageEditorID = &editorID
		m.TriageNotes = strings.TrimSpace(notes)
		m.TriageDeadline = nil

		tr, err := s.applyTransition(repo, actor, m, rule, Trigger(t), &d.DecisionID, "", now)
		if err != nil {
			return err
		}
		res.Manuscript, res.Decision, res.Transition = m, d, tr
		return nil
	})
	if err != nil {
		return nil, s.reject(op, actor, err)
	}
	s.committed(op, actor, res)

	res.Events = []Event{decisionEvent(EventTriageDecision, actor, res, now)}
	return res, nil
}

// EditorDecision records a post-review decision and applies its transition.
func (s *WorkflowService) EditorDecision(ctx context.Context, actor Actor, manuscriptID uint, t models.DecisionType, letter, notes string) (*TransitionResult, error) {
	const op = "editor_decision"
	if err := actor.require(CapTriageManuscripts); err != nil {
		return nil, s.reject(op, actor, err)
	}
	if !t.Valid() || t.IsTriage() {
		return nil, s.reject(op, actor, validation("%q is not an editorial decision", t))
	}
	if strings.TrimSpace(letter) == "" {
		return nil, s.reject(op, actor, validation("a decision letter is required"))
	}

	now := s.now()
	res := &TransitionResult{}
	err := s.store.Atomic(ctx, func(repo Repository) error {
		m, err := repo.LockManuscript(manuscriptID)
		if err != nil {
			return wrapRepoErr(err, "manuscript", manuscriptID)
		}
		rule, ok := findTransition(m.Stage, Trigger(t), models.RevisionTypeNone)
		if !ok {
			return invalidState("%s is not allowed while manuscript %d is in %s", t, manuscriptID, m.Stage)
		}
		d, err := recordDecision(repo, actor, m, t, letter, notes, now)
		if err != nil {
			return err
		}

		m.EditorDecision = string(t)
		m.EditorNotes = d.DecisionLetter
		m.DecisionDate = &now

		tr, err := s.applyTransition(repo, actor, m, rule, Trigger(t), &d.DecisionID, "", now)
		if err != nil {
			return err
		}
		res.Manuscript, res.Decision, res.Transition = m, d, tr
		return nil
	})
	if err != nil {
		return nil, s.reject(op, actor, err)
	}
	s.committed(op, actor, res)

	res.Events = []Event{decisionEvent(EventEditorDecision, actor, res, now)}
	return res, nil
}

func decisionEvent(kind EventKind, actor Actor, res *TransitionResult, at time.Time) Event {
	return Event{
		Kind:         kind,
		ManuscriptID: res.Manuscript.ManuscriptID,
		DecisionID:   res.Decision.DecisionID,
		ActorID:      actor.UserID,
		UserIDs:      []uint{res.Manuscript.AuthorID},
		Data: map[string]string{
			"title":    res.Manuscript.Title,
			"decision": string(res.Decision.DecisionType),
			"letter":   res.Decision.DecisionLetter,
			"stage":    string(res.Manuscript.Stage),
		},
		At: at,
	}
}

// UploadRevision stores the author's revised artifacts and returns the
// manuscript to the stage recorded when the revision was requested.
func (s *WorkflowService) UploadRevision(ctx context.Context, actor Actor, manuscriptID uint, in RevisionInput) (*TransitionResult, error) {
	const op = "upload_revision"
	if strings.TrimSpace(in.Notes) == "" {
		return nil, s.reject(op, actor, validation("revision notes are required"))
	}
	if err := validateArtifacts(in.Artifacts); err != nil {
		return nil, s.reject(op, actor, err)
	}

	now := s.now()
	res := &TransitionResult{}
	err := s.store.Atomic(ctx, func(repo Repository) error {
		m, err := repo.LockManuscript(manuscriptID)
		if err != nil {
			return wrapRepoErr(err, "manuscript", manuscriptID)
		}
		if m.AuthorID != actor.UserID || actor.UserID == 0 {
			return unauthorized("only the author may upload revisions of manuscript %d", manuscriptID)
		}
		if m.Stage != models.StageRevision {
			return invalidState("manuscript %d is in %s, not awaiting revision", manuscriptID, m.Stage)
		}
		if m.RevisionType == models.RevisionTypeNone {
			return invalidState("manuscript %d has no recorded revision type", manuscriptID)
		}
		rule, ok := findTransition(m.Stage, TriggerRevisionUpload, m.RevisionType)
		if !ok {
			return invalidState("unknown revision type %q on manuscript %d", m.RevisionType, manuscriptID)
		}

		count, err := repo.CountRevisions(manuscriptID)
		if err != nil {
			return err
		}
		rev := &models.ManuscriptRevision{
			ManuscriptID:   manuscriptID,
			RevisionNumber: int(count) + 1,
			UploadedBy:     actor.UserID,
			Notes:          strings.TrimSpace(in.Notes),
			ReturnedTo:     rule.To,
			UploadedAt:     now,
		}
		rev.PriorArtifacts = datatypes.NewJSONType(m.Artifacts())
		m.ApplyArtifacts(in.Artifacts)
		rev.NewArtifacts = datatypes.NewJSONType(m.Artifacts())
		if err := repo.AppendRevision(rev); err != nil {
			return err
		}

		m.RevisionCount++
		m.LatestRevisionNotes = rev.Notes
		if rule.To == models.StageTriage {
			deadline := now.Add(s.triageWindow)
			m.TriageDeadline = &deadline
		}

		tr, err := s.applyTransition(repo, actor, m, rule, TriggerRevisionUpload, nil, "", now)
		if err != nil {
			return err
		}
		res.Manuscript, res.Revision, res.Transition = m, rev, tr
		return nil
	})
	if err != nil {
		return nil, s.reject(op, actor, err)
	}
	s.committed(op, actor, res)

	res.Events = []Event{{
		Kind:         EventRevisionSubmitted,
		ManuscriptID: manuscriptID,
		ActorID:      actor.UserID,
		Roles:        editorialRoles,
		Data: map[string]string{
			"title":           res.Manuscript.Title,
			"revision_number": strconv.Itoa(res.Revision.RevisionNumber),
			"returned_to":     string(res.Manuscript.Stage),
		},
		At: now,
	}}
	return res, nil
}

// Publish moves an accepted manuscript to published and creates its article.
func (s *WorkflowService) Publish(ctx context.Context, actor Actor, manuscriptID uint) (*TransitionResult, error) {
	const op = "publish"
	if err := actor.require(CapPublishArticles); err != nil {
		return nil, s.reject(op, actor, err)
	}

	now := s.now()
	res := &TransitionResult{}
	err := s.store.Atomic(ctx, func(repo Repository) error {
		m, err := repo.LockManuscript(manuscriptID)
		if err != nil {
			return wrapRepoErr(err, "manuscript", manuscriptID)
		}
		rule, ok := findTransition(m.Stage, TriggerPublish, models.RevisionTypeNone)
		if !ok {
			return invalidState("manuscript %d is in %s and cannot be published", manuscriptID, m.Stage)
		}
		if _, err := repo.GetArticleByManuscript(manuscriptID); err == nil {
			return conflict("manuscript %d already has an article", manuscriptID)
		} else if !errors.Is(err, ErrRecordNotFound) {
			return err
		}

		article := &models.Article{
			SourceManuscriptID: manuscriptID,
			Title:              m.Title,
			Excerpt:            m.Abstract,
			AuthorID:           m.AuthorID,
			PDFRef:             m.FullFileRef,
			LatexRef:           m.LatexFileRef,
			CarRef:             m.CarFileRef,
			Status:             "draft",
			PublicationDate:    &now,
			CreatedAt:          now,
		}
		if s.users != nil {
			if author, err := s.users.GetUser(ctx, m.AuthorID); err == nil {
				article.AuthorDisplay = author.Name()
			}
		}
		if err := repo.CreateArticle(article); err != nil {
			return err
		}

		tr, err := s.applyTransition(repo, actor, m, rule, TriggerPublish, nil, "", now)
		if err != nil {
			return err
		}
		res.Manuscript, res.Article, res.Transition = m, article, tr
		return nil
	})
	if err != nil {
		return nil, s.reject(op, actor, err)
	}
	s.committed(op, actor, res)

	res.Events = []Event{{
		Kind:         EventArticlePublished,
		ManuscriptID: manuscriptID,
		ActorID:      actor.UserID,
		UserIDs:      []uint{res.Manuscript.AuthorID},
		Data:         map[string]string{"title": res.Manuscript.Title},
		At:           now,
	}}
	return res, nil
}

// OverrideStage moves a manuscript along an editor-driven edge of the
// transition table without recording a decision.
func (s *WorkflowService) OverrideStage(ctx context.Context, actor Actor, manuscriptID uint, target models.ManuscriptStage, notes string) (*TransitionResult, error) {
	const op = "stage_override"
	if err := actor.require(CapMakeDecisions); err != nil {
		return nil, s.reject(op, actor, err)
	}
	if !target.Valid() {
		return nil, s.reject(op, actor, validation("unknown stage %q", target))
	}

	now := s.now()
	res := &TransitionResult{}
	err := s.store.Atomic(ctx, func(repo Repository) error {
		m, err := repo.LockManuscript(manuscriptID)
		if err != nil {
			return wrapRepoErr(err, "manuscript", manuscriptID)
		}
		rule, ok := findOverride(m.Stage, target)
		if !ok {
			return invalidState("manuscript %d cannot move from %s to %s", manuscriptID, m.Stage, target)
		}
		if m.Stage == models.StageTriage {
			m.TriageDeadline = nil
		}
		tr, err := s.applyTransition(repo, actor, m, rule, TriggerStageOverride, nil, notes, now)
		if err != nil {
			return err
		}
		res.Manuscript, res.Transition = m, tr
		return nil
	})
	if err != nil {
		return nil, s.reject(op, actor, err)
	}
	s.committed(op, actor, res)

	res.Events = []Event{{
		Kind:         EventStageOverridden,
		ManuscriptID: manuscriptID,
		ActorID:      actor.UserID,
		UserIDs:      []uint{res.Manuscript.AuthorID},
		Data: map[string]string{
			"title": res.Manuscript.Title,
			"from":  string(res.Transition.FromStage),
			"stage": string(res.Transition.ToStage),
		},
		At: now,
	}}
	return res, nil
}
