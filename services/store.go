package services

import (
	"context"
	"time"

	"journal-review-api/models"
)

// ManuscriptFilter narrows ListManuscripts. Zero fields are ignored.
type ManuscriptFilter struct {
	AuthorID uint
	// ReviewerID keeps manuscripts the reviewer holds a non-declined review on.
	ReviewerID           uint
	Stages               []models.ManuscriptStage
	TriageDeadlineBefore *time.Time
	Limit                int
	Offset               int
}

// ReviewFilter narrows ListReviews and CountReviews. Zero fields are ignored.
type ReviewFilter struct {
	ManuscriptID uint
	ReviewerID   uint
	Statuses     []models.ReviewStatus
	DueBefore    *time.Time
}

// Repository is the data access surface a single unit of work sees.
// Implementations return ErrRecordNotFound for missing rows and ErrStaleWrite
// when a compare-and-swap update matches nothing.
type Repository interface {
	CreateManuscript(m *models.Manuscript) error
	GetManuscript(id uint) (*models.Manuscript, error)
	// LockManuscript loads the row and holds it until the unit of work ends.
	LockManuscript(id uint) (*models.Manuscript, error)
	// UpdateManuscript writes m only if the stored stage still equals expected.
	UpdateManuscript(m *models.Manuscript, expected models.ManuscriptStage) error
	ListManuscripts(f ManuscriptFilter) ([]models.Manuscript, error)
	CountManuscriptsByStage() (map[models.ManuscriptStage]int64, error)

	AppendDecision(d *models.Decision) error
	ListDecisions(manuscriptID uint) ([]models.Decision, error)

	AppendTransition(t *models.StageTransition) error
	ListTransitions(manuscriptID uint) ([]models.StageTransition, error)

	AppendRevision(r *models.ManuscriptRevision) error
	ListRevisions(manuscriptID uint) ([]models.ManuscriptRevision, error)
	CountRevisions(manuscriptID uint) (int64, error)

	CreateReview(r *models.Review) error
	GetReview(id uint) (*models.Review, error)
	LockReview(id uint) (*models.Review, error)
	// UpdateReview writes r only if the stored status still equals expected.
	UpdateReview(r *models.Review, expected models.ReviewStatus) error
	ListReviews(f ReviewFilter) ([]models.Review, error)
	CountReviews(f ReviewFilter) (int64, error)

	CreateArticle(a *models.Article) error
	GetArticleByManuscript(manuscriptID uint) (*models.Article, error)
}

// Store runs units of work against the journal data.
type Store interface {
	// Atomic runs fn in a single transaction. Any error returned by fn rolls
	// back every write made through the repository.
	Atomic(ctx context.Context, fn func(Repository) error) error
	// Read runs fn against a consistent read view.
	Read(ctx context.Context, fn func(Repository) error) error
}
