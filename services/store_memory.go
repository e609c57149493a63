package services

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"journal-review-api/models"
)

// MemoryStore keeps journal data in process. Units of work are serialised and
// a failed unit restores the state it started from.
type MemoryStore struct {
	mu   sync.RWMutex
	data memoryData

	// commitHook runs after fn succeeded; an error simulates a failed commit.
	commitHook func() error
}

type memoryData struct {
	manuscripts map[uint]models.Manuscript
	decisions   []models.Decision
	transitions []models.StageTransition
	revisions   []models.ManuscriptRevision
	reviews     map[uint]models.Review
	articles    map[uint]models.Article
	seq         map[string]uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: memoryData{
		manuscripts: make(map[uint]models.Manuscript),
		reviews:     make(map[uint]models.Review),
		articles:    make(map[uint]models.Article),
		seq:         make(map[string]uint),
	}}
}

func (d memoryData) clone() memoryData {
	out := memoryData{
		manuscripts: make(map[uint]models.Manuscript, len(d.manuscripts)),
		decisions:   append([]models.Decision(nil), d.decisions...),
		transitions: append([]models.StageTransition(nil), d.transitions...),
		revisions:   append([]models.ManuscriptRevision(nil), d.revisions...),
		reviews:     make(map[uint]models.Review, len(d.reviews)),
		articles:    make(map[uint]models.Article, len(d.articles)),
		seq:         make(map[string]uint, len(d.seq)),
	}
	for k, v := range d.manuscripts {
		out.manuscripts[k] = v
	}
	for k, v := range d.reviews {
		out.reviews[k] = cloneReview(v)
	}
	for k, v := range d.articles {
		out.articles[k] = v
	}
	for k, v := range d.seq {
		out.seq[k] = v
	}
	return out
}

func (s *MemoryStore) Atomic(ctx context.Context, fn func(Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&memoryRepository{data: &s.data}); err != nil {
		s.data = snapshot
		return err
	}
	if s.commitHook != nil {
		if err := s.commitHook(); err != nil {
			s.data = snapshot
			return integrity(err, "commit failed after all writes were issued")
		}
	}
	return nil
}

func (s *MemoryStore) Read(ctx context.Context, fn func(Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memoryRepository{data: &s.data, readOnly: true})
}

type memoryRepository struct {
	data     *memoryData
	readOnly bool
}

func (r *memoryRepository) next(table string) uint {
	r.data.seq[table]++
	return r.data.seq[table]
}

func (r *memoryRepository) writable() error {
	if r.readOnly {
		return fmt.Errorf("write attempted in a read-only unit of work")
	}
	return nil
}

func cloneReview(rv models.Review) models.Review {
	for _, p := range []**int{
		&rv.RelevanceScore, &rv.SoundnessScore, &rv.ClarityScore,
		&rv.OpenScienceScore, &rv.ImpactScore, &rv.ProvenanceScore,
	} {
		if *p != nil {
			v := **p
			*p = &v
		}
	}
	return rv
}

func (r *memoryRepository) CreateManuscript(m *models.Manuscript) error {
	if err := r.writable(); err != nil {
		return err
	}
	m.ManuscriptID = r.next("manuscripts")
	stored := *m
	stored.Revisions = nil
	r.data.manuscripts[m.ManuscriptID] = stored
	return nil
}

func (r *memoryRepository) GetManuscript(id uint) (*models.Manuscript, error) {
	m, ok := r.data.manuscripts[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &m, nil
}

func (r *memoryRepository) LockManuscript(id uint) (*models.Manuscript, error) {
	return r.GetManuscript(id)
}

func (r *memoryRepository) UpdateManuscript(m *models.Manuscript, expected models.ManuscriptStage) error {
	if err := r.writable(); err != nil {
		return err
	}
	current, ok := r.data.manuscripts[m.ManuscriptID]
	if !ok || current.Stage != expected {
		return ErrStaleWrite
	}
	stored := *m
	stored.SubmittedAt = current.SubmittedAt
	stored.Revisions = nil
	r.data.manuscripts[m.ManuscriptID] = stored
	return nil
}

func (r *memoryRepository) ListManuscripts(f ManuscriptFilter) ([]models.Manuscript, error) {
	var assigned map[uint]bool
	if f.ReviewerID != 0 {
		assigned = make(map[uint]bool)
		for _, rv := range r.data.reviews {
			if rv.ReviewerID == f.ReviewerID && slices.Contains(assignedStatuses, rv.Status) {
				assigned[rv.ManuscriptID] = true
			}
		}
	}

	rows := make([]models.Manuscript, 0, len(r.data.manuscripts))
	for _, m := range r.data.manuscripts {
		if f.AuthorID != 0 && m.AuthorID != f.AuthorID {
			continue
		}
		if assigned != nil && !assigned[m.ManuscriptID] {
			continue
		}
		if len(f.Stages) > 0 && !slices.Contains(f.Stages, m.Stage) {
			continue
		}
		if f.TriageDeadlineBefore != nil && (m.TriageDeadline == nil || !m.TriageDeadline.Before(*f.TriageDeadlineBefore)) {
			continue
		}
		rows = append(rows, m)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].SubmittedAt.Equal(rows[j].SubmittedAt) {
			return rows[i].SubmittedAt.After(rows[j].SubmittedAt)
		}
		return rows[i].ManuscriptID > rows[j].ManuscriptID
	})

	if f.Offset > 0 {
		if f.Offset >= len(rows) {
			return nil, nil
		}
		rows = rows[f.Offset:]
	}
	if f.Limit > 0 && len(rows) > f.Limit {
		rows = rows[:f.Limit]
	}
	return rows, nil
}

func (r *memoryRepository) CountManuscriptsByStage() (map[models.ManuscriptStage]int64, error) {
	counts := make(map[models.ManuscriptStage]int64, len(models.AllStages))
	for _, stage := range models.AllStages {
		counts[stage] = 0
	}
	for _, m := range r.data.manuscripts {
		counts[m.Stage]++
	}
	return counts, nil
}

func (r *memoryRepository) AppendDecision(d *models.Decision) error {
	if err := r.writable(); err != nil {
		return err
	}
	if d.DecisionID != 0 {
		return fmt.Errorf("decision %d already recorded", d.DecisionID)
	}
	d.DecisionID = r.next("decisions")
	r.data.decisions = append(r.data.decisions, *d)
	return nil
}

func (r *memoryRepository) ListDecisions(manuscriptID uint) ([]models.Decision, error) {
	var rows []models.Decision
	for _, d := range r.data.decisions {
		if d.ManuscriptID == manuscriptID {
			rows = append(rows, d)
		}
	}
	return rows, nil
}

func (r *memoryRepository) AppendTransition(t *models.StageTransition) error {
	if err := r.writable(); err != nil {
		return err
	}
	t.TransitionID = r.next("stage_transitions")
	r.data.transitions = append(r.data.transitions, *t)
	return nil
}

func (r *memoryRepository) ListTransitions(manuscriptID uint) ([]models.StageTransition, error) {
	var rows []models.StageTransition
	for _, t := range r.data.transitions {
		if t.ManuscriptID == manuscriptID {
			rows = append(rows, t)
		}
	}
	return rows, nil
}

func (r *memoryRepository) AppendRevision(rev *models.ManuscriptRevision) error {
	if err := r.writable(); err != nil {
		return err
	}
	rev.RevisionID = r.next("manuscript_revisions")
	r.data.revisions = append(r.data.revisions, *rev)
	return nil
}

func (r *memoryRepository) ListRevisions(manuscriptID uint) ([]models.ManuscriptRevision, error) {
	var rows []models.ManuscriptRevision
	for _, rev := range r.data.revisions {
		if rev.ManuscriptID == manuscriptID {
			rows = append(rows, rev)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].RevisionNumber < rows[j].RevisionNumber })
	return rows, nil
}

func (r *memoryRepository) CountRevisions(manuscriptID uint) (int64, error) {
	rows, _ := r.ListRevisions(manuscriptID)
	return int64(len(rows)), nil
}

func (r *memoryRepository) CreateReview(rv *models.Review) error {
	if err := r.writable(); err != nil {
		return err
	}
	rv.ReviewID = r.next("reviews")
	r.data.reviews[rv.ReviewID] = cloneReview(*rv)
	return nil
}

func (r *memoryRepository) GetReview(id uint) (*models.Review, error) {
	rv, ok := r.data.reviews[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	out := cloneReview(rv)
	return &out, nil
}

func (r *memoryRepository) LockReview(id uint) (*models.Review, error) {
	return r.GetReview(id)
}

func (r *memoryRepository) UpdateReview(rv *models.Review, expected models.ReviewStatus) error {
	if err := r.writable(); err != nil {
		return err
	}
	current, ok := r.data.reviews[rv.ReviewID]
	if !ok || current.Status != expected {
		return ErrStaleWrite
	}
	stored := cloneReview(*rv)
	stored.CreatedAt = current.CreatedAt
	r.data.reviews[rv.ReviewID] = stored
	return nil
}

func (r *memoryRepository) matchReviews(f ReviewFilter) []models.Review {
	var rows []models.Review
	for _, rv := range r.data.reviews {
		if f.ManuscriptID != 0 && rv.ManuscriptID != f.ManuscriptID {
			continue
		}
		if f.ReviewerID != 0 && rv.ReviewerID != f.ReviewerID {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, rv.Status) {
			continue
		}
		if f.DueBefore != nil && !rv.DueDate.Before(*f.DueBefore) {
			continue
		}
		rows = append(rows, cloneReview(rv))
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ReviewRound != rows[j].ReviewRound {
			return rows[i].ReviewRound < rows[j].ReviewRound
		}
		return rows[i].ReviewID < rows[j].ReviewID
	})
	return rows
}

func (r *memoryRepository) ListReviews(f ReviewFilter) ([]models.Review, error) {
	return r.matchReviews(f), nil
}

func (r *memoryRepository) CountReviews(f ReviewFilter) (int64, error) {
	return int64(len(r.matchReviews(f))), nil
}

func (r *memoryRepository) CreateArticle(a *models.Article) error {
	if err := r.writable(); err != nil {
		return err
	}
	a.ArticleID = r.next("articles")
	r.data.articles[a.ArticleID] = *a
	return nil
}

func (r *memoryRepository) GetArticleByManuscript(manuscriptID uint) (*models.Article, error) {
	for _, a := range r.data.articles {
		if a.SourceManuscriptID == manuscriptID {
			out := a
			return &out, nil
		}
	}
	return nil, ErrRecordNotFound
}
