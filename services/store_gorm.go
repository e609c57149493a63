package services

import (
	"context"
	"errors"
	"fmt"

	"journal-review-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the SQL backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Atomic runs fn inside a database transaction. A failure after fn succeeded
// means the commit itself failed and the outcome is unknown.
func (s *GormStore) Atomic(ctx context.Context, fn func(Repository) error) error {
	committing := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(&gormRepository{tx: tx}); err != nil {
			return err
		}
		committing = true
		return nil
	})
	if err != nil && committing {
		return integrity(err, "commit failed after all writes were issued")
	}
	return err
}

func (s *GormStore) Read(ctx context.Context, fn func(Repository) error) error {
	return fn(&gormRepository{tx: s.db.WithContext(ctx)})
}

type gormRepository struct {
	tx *gorm.DB
}

func translateGormErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}

func (r *gormRepository) CreateManuscript(m *models.Manuscript) error {
	return r.tx.Omit(clause.Associations).Create(m).Error
}

func (r *gormRepository) GetManuscript(id uint) (*models.Manuscript, error) {
	var m models.Manuscript
	if err := r.tx.First(&m, "manuscript_id = ?", id).Error; err != nil {
		return nil, translateGormErr(err)
	}
	return &m, nil
}

func (r *gormRepository) LockManuscript(id uint) (*models.Manuscript, error) {
	var m models.Manuscript
	if err := r.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&m, "manuscript_id = ?", id).Error; err != nil {
		return nil, translateGormErr(err)
	}
	return &m, nil
}

func (r *gormRepository) UpdateManuscript(m *models.Manuscript, expected models.ManuscriptStage) error {
	res := r.tx.Model(&models.Manuscript{}).
		Where("manuscript_id = ? AND stage = ?", m.ManuscriptID, expected).
		Select("*").
		Omit("manuscript_id", "submitted_at", "Revisions").
		Updates(m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

func (r *gormRepository) ListManuscripts(f ManuscriptFilter) ([]models.Manuscript, error) {
	q := r.tx.Model(&models.Manuscript{})
	if f.AuthorID != 0 {
		q = q.Where("author_id = ?", f.AuthorID)
	}
	if f.ReviewerID != 0 {
		q = q.Where("manuscript_id IN (?)",
			r.tx.Model(&models.Review{}).
				Select("manuscript_id").
				Where("reviewer_id = ? AND status IN ?", f.ReviewerID, assignedStatuses))
	}
	if len(f.Stages) > 0 {
		q = q.Where("stage IN ?", f.Stages)
	}
	if f.TriageDeadlineBefore != nil {
		q = q.Where("triage_deadline IS NOT NULL AND triage_deadline < ?", *f.TriageDeadlineBefore)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var rows []models.Manuscript
	if err := q.Order("submitted_at DESC, manuscript_id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gormRepository) CountManuscriptsByStage() (map[models.ManuscriptStage]int64, error) {
	var rows []struct {
		Stage models.ManuscriptStage
		Total int64
	}
	if err := r.tx.Model(&models.Manuscript{}).
		Select("stage, COUNT(*) AS total").
		Group("stage").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[models.ManuscriptStage]int64, len(models.AllStages))
	for _, stage := range models.AllStages {
		counts[stage] = 0
	}
	for _, row := range rows {
		counts[row.Stage] = row.Total
	}
	return counts, nil
}

func (r *gormRepository) AppendDecision(d *models.Decision) error {
	if d.DecisionID != 0 {
		return fmt.Errorf("decision %d already recorded", d.DecisionID)
	}
	return r.tx.Create(d).Error
}

func (r *gormRepository) ListDecisions(manuscriptID uint) ([]models.Decision, error) {
	var rows []models.Decision
	err := r.tx.Where("manuscript_id = ?", manuscriptID).
		Order("created_at ASC, decision_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *gormRepository) AppendTransition(t *models.StageTransition) error {
	return r.tx.Create(t).Error
}

func (r *gormRepository) ListTransitions(manuscriptID uint) ([]models.StageTransition, error) {
	var rows []models.StageTransition
	err := r.tx.Where("manuscript_id = ?", manuscriptID).
		Order("created_at ASC, transition_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *gormRepository) AppendRevision(rev *models.ManuscriptRevision) error {
	return r.tx.Create(rev).Error
}

func (r *gormRepository) ListRevisions(manuscriptID uint) ([]models.ManuscriptRevision, error) {
	var rows []models.ManuscriptRevision
	err := r.tx.Where("manuscript_id = ?", manuscriptID).
		Order("revision_number ASC").
		Find(&rows).Error
	return rows, err
}

func (r *gormRepository) CountRevisions(manuscriptID uint) (int64, error) {
	var total int64
	err := r.tx.Model(&models.ManuscriptRevision{}).
		Where("manuscript_id = ?", manuscriptID).
		Count(&total).Error
	return total, err
}

func (r *gormRepository) CreateReview(rv *models.Review) error {
	return r.tx.Create(rv).Error
}

func (r *gormRepository) GetReview(id uint) (*models.Review, error) {
	var rv models.Review
	if err := r.tx.First(&rv, "review_id = ?", id).Error; err != nil {
		return nil, translateGormErr(err)
	}
	return &rv, nil
}

func (r *gormRepository) LockReview(id uint) (*models.Review, error) {
	var rv models.Review
	if err := r.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&rv, "review_id = ?", id).Error; err != nil {
		return nil, translateGormErr(err)
	}
	return &rv, nil
}

func (r *gormRepository) UpdateReview(rv *models.Review, expected models.ReviewStatus) error {
	res := r.tx.Model(&models.Review{}).
		Where("review_id = ? AND status = ?", rv.ReviewID, expected).
		Select("*").
		Omit("review_id", "created_at").
		Updates(rv)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

func (r *gormRepository) reviewQuery(f ReviewFilter) *gorm.DB {
	q := r.tx.Model(&models.Review{})
	if f.ManuscriptID != 0 {
		q = q.Where("manuscript_id = ?", f.ManuscriptID)
	}
	if f.ReviewerID != 0 {
		q = q.Where("reviewer_id = ?", f.ReviewerID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.DueBefore != nil {
		q = q.Where("due_date < ?", *f.DueBefore)
	}
	return q
}

func (r *gormRepository) ListReviews(f ReviewFilter) ([]models.Review, error) {
	var rows []models.Review
	err := r.reviewQuery(f).Order("review_round ASC, review_id ASC").Find(&rows).Error
	return rows, err
}

func (r *gormRepository) CountReviews(f ReviewFilter) (int64, error) {
	var total int64
	err := r.reviewQuery(f).Count(&total).Error
	return total, err
}

func (r *gormRepository) CreateArticle(a *models.Article) error {
	return r.tx.Create(a).Error
}

func (r *gormRepository) GetArticleByManuscript(manuscriptID uint) (*models.Article, error) {
	var a models.Article
	if err := r.tx.First(&a, "source_manuscript_id = ?", manuscriptID).Error; err != nil {
		return nil, translateGormErr(err)
	}
	return &a, nil
}
