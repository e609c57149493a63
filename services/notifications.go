package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"journal-review-api/models"

	"gorm.io/gorm"
)

// NotificationStore persists in-app notifications and their templates.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uint) error
	MarkAllRead(ctx context.Context, userID uint) error
	// Template returns the active template for an event and audience.
	Template(ctx context.Context, eventKey, sendTo string) (*models.NotificationMessage, error)
	ListTemplates(ctx context.Context, f TemplateFilter) ([]models.NotificationMessage, error)
	GetTemplate(ctx context.Context, id uint) (*models.NotificationMessage, error)
	// SaveTemplate inserts t when t.ID is zero and replaces it otherwise.
	SaveTemplate(ctx context.Context, t *models.NotificationMessage) error
}

// TemplateFilter narrows ListTemplates. Empty fields match everything.
type TemplateFilter struct {
	EventKey string
	SendTo   string
	IsActive *bool
}

func (f TemplateFilter) match(t models.NotificationMessage) bool {
	if f.EventKey != "" && t.EventKey != f.EventKey {
		return false
	}
	if f.SendTo != "" && t.SendTo != f.SendTo {
		return false
	}
	return f.IsActive == nil || *f.IsActive == t.IsActive
}

// GormNotificationStore reads and writes the notifications tables.
type GormNotificationStore struct {
	db *gorm.DB
}

func NewGormNotificationStore(db *gorm.DB) *GormNotificationStore {
	return &GormNotificationStore{db: db}
}

func (s *GormNotificationStore) Create(ctx context.Context, n *models.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

func (s *GormNotificationStore) List(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	q := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var items []models.Notification
	err := q.Order("create_at DESC").Limit(limit).Offset(offset).Find(&items).Error
	return items, err
}

func (s *GormNotificationStore) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

func (s *GormNotificationStore) MarkRead(ctx context.Context, userID, notificationID uint) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("notification_id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]interface{}{"is_read": true, "update_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *GormNotificationStore) MarkAllRead(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "update_at": time.Now()}).Error
}

func (s *GormNotificationStore) Template(ctx context.Context, eventKey, sendTo string) (*models.NotificationMessage, error) {
	var tmpl models.NotificationMessage
	if err := s.db.WithContext(ctx).
		Where("event_key = ? AND send_to = ? AND is_active = ?", eventKey, sendTo, true).
		First(&tmpl).Error; err != nil {
		return nil, translateGormErr(err)
	}
	return &tmpl, nil
}

func (s *GormNotificationStore) ListTemplates(ctx context.Context, f TemplateFilter) ([]models.NotificationMessage, error) {
	q := s.db.WithContext(ctx).Model(&models.NotificationMessage{})
	if f.EventKey != "" {
		q = q.Where("event_key = ?", f.EventKey)
	}
	if f.SendTo != "" {
		q = q.Where("send_to = ?", f.SendTo)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	var items []models.NotificationMessage
	err := q.Order("event_key, send_to").Find(&items).Error
	return items, err
}

func (s *GormNotificationStore) GetTemplate(ctx context.Context, id uint) (*models.NotificationMessage, error) {
	var tmpl models.NotificationMessage
	if err := s.db.WithContext(ctx).First(&tmpl, id).Error; err != nil {
		return nil, translateGormErr(err)
	}
	return &tmpl, nil
}

func (s *GormNotificationStore) SaveTemplate(ctx context.Context, t *models.NotificationMessage) error {
	now := time.Now()
	t.UpdatedAt = now
	if t.ID == 0 {
		t.CreatedAt = now
		return s.db.WithContext(ctx).Create(t).Error
	}
	res := s.db.WithContext(ctx).Model(&models.NotificationMessage{}).
		Where("id = ?", t.ID).
		Updates(map[string]interface{}{
			"event_key":      t.EventKey,
			"send_to":        t.SendTo,
			"title_template": t.TitleTemplate,
			"body_template":  t.BodyTemplate,
			"description":    t.Description,
			"is_active":      t.IsActive,
			"updated_by":     t.UpdatedBy,
			"updated_at":     now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// MemoryNotificationStore keeps notifications in process.
type MemoryNotificationStore struct {
	mu        sync.Mutex
	seq       uint
	items     []models.Notification
	tmplSeq   uint
	templates []models.NotificationMessage
}

func NewMemoryNotificationStore() *MemoryNotificationStore {
	return &MemoryNotificationStore{}
}

// PutTemplate registers a template, replacing one with the same event and
// audience.
func (s *MemoryNotificationStore) PutTemplate(t models.NotificationMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.templates {
		if s.templates[i].EventKey == t.EventKey && s.templates[i].SendTo == t.SendTo {
			t.ID = s.templates[i].ID
			s.templates[i] = t
			return
		}
	}
	s.tmplSeq++
	t.ID = s.tmplSeq
	s.templates = append(s.templates, t)
}

func (s *MemoryNotificationStore) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	n.NotificationID = s.seq
	s.items = append(s.items, *n)
	return nil
}

func (s *MemoryNotificationStore) List(_ context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.items {
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].NotificationID > out[j].NotificationID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryNotificationStore) CountUnread(_ context.Context, userID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, item := range s.items {
		if item.UserID == userID && !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *MemoryNotificationStore) MarkRead(_ context.Context, userID, notificationID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].NotificationID == notificationID && s.items[i].UserID == userID {
			s.items[i].IsRead = true
			return nil
		}
	}
	return ErrRecordNotFound
}

func (s *MemoryNotificationStore) MarkAllRead(_ context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].UserID == userID {
			s.items[i].IsRead = true
		}
	}
	return nil
}

func (s *MemoryNotificationStore) Template(_ context.Context, eventKey, sendTo string) (*models.NotificationMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.templates {
		if t.EventKey == eventKey && t.SendTo == sendTo && t.IsActive {
			return &t, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (s *MemoryNotificationStore) ListTemplates(_ context.Context, f TemplateFilter) ([]models.NotificationMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.NotificationMessage
	for _, t := range s.templates {
		if f.match(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EventKey != out[j].EventKey {
			return out[i].EventKey < out[j].EventKey
		}
		return out[i].SendTo < out[j].SendTo
	})
	return out, nil
}

func (s *MemoryNotificationStore) GetTemplate(_ context.Context, id uint) (*models.NotificationMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.templates {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (s *MemoryNotificationStore) SaveTemplate(_ context.Context, t *models.NotificationMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	t.UpdatedAt = now
	if t.ID == 0 {
		s.tmplSeq++
		t.ID = s.tmplSeq
		t.CreatedAt = now
		s.templates = append(s.templates, *t)
		return nil
	}
	for i := range s.templates {
		if s.templates[i].ID == t.ID {
			t.CreatedAt = s.templates[i].CreatedAt
			s.templates[i] = *t
			return nil
		}
	}
	return ErrRecordNotFound
}
