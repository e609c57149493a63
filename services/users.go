package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"journal-review-api/models"

	"gorm.io/gorm"
)

// UserDirectory looks up journal users.
type UserDirectory interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ListByRoles(ctx context.Context, roles []Role) ([]models.User, error)
	SetPassword(ctx context.Context, id uint, hash string) error
}

// roleNames returns every stored role name that resolves to one of roles.
func roleNames(roles []Role) []string {
	var names []string
	for _, role := range roles {
		names = append(names, roleSynonyms[role]...)
	}
	return names
}

// GormUserDirectory reads the users table.
type GormUserDirectory struct {
	db *gorm.DB
}

func NewGormUserDirectory(db *gorm.DB) *GormUserDirectory {
	return &GormUserDirectory{db: db}
}

func (d *GormUserDirectory) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := d.db.WithContext(ctx).
		Where("user_id = ? AND delete_at IS NULL", id).
		First(&user).Error; err != nil {
		return nil, translateGormErr(err)
	}
	return &user, nil
}

func (d *GormUserDirectory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := d.db.WithContext(ctx).
		Where("LOWER(email) = ? AND delete_at IS NULL", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error; err != nil {
		return nil, translateGormErr(err)
	}
	return &user, nil
}

func (d *GormUserDirectory) ListByRoles(ctx context.Context, roles []Role) ([]models.User, error) {
	names := roleNames(roles)
	if len(names) == 0 {
		return nil, nil
	}
	var users []models.User
	err := d.db.WithContext(ctx).
		Where("role IN ? AND delete_at IS NULL", names).
		Order("user_id").
		Find(&users).Error
	return users, err
}

func (d *GormUserDirectory) SetPassword(ctx context.Context, id uint, hash string) error {
	res := d.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ? AND delete_at IS NULL", id).
		Updates(map[string]interface{}{"password": hash, "update_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// MemoryUserDirectory is an in-process directory.
type MemoryUserDirectory struct {
	mu    sync.RWMutex
	users map[uint]models.User
}

func NewMemoryUserDirectory(users ...models.User) *MemoryUserDirectory {
	d := &MemoryUserDirectory{users: make(map[uint]models.User, len(users))}
	for _, u := range users {
		d.users[u.UserID] = u
	}
	return d
}

// Put adds or replaces a user.
func (d *MemoryUserDirectory) Put(u models.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.UserID] = u
}

func (d *MemoryUserDirectory) GetUser(_ context.Context, id uint) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok || u.DeleteAt != nil {
		return nil, ErrRecordNotFound
	}
	return &u, nil
}

func (d *MemoryUserDirectory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(email))
	for _, u := range d.users {
		if strings.ToLower(u.Email) == needle && u.DeleteAt == nil {
			out := u
			return &out, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (d *MemoryUserDirectory) ListByRoles(_ context.Context, roles []Role) ([]models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []models.User
	for _, u := range d.users {
		role, ok := ResolveRole(&u)
		if !ok {
			continue
		}
		for _, want := range roles {
			if role == want {
				out = append(out, u)
				break
			}
		}
	}
	return out, nil
}

func (d *MemoryUserDirectory) SetPassword(_ context.Context, id uint, hash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok || u.DeleteAt != nil {
		return ErrRecordNotFound
	}
	now := time.Now()
	u.Password = hash
	u.UpdateAt = &now
	d.users[id] = u
	return nil
}
