package models

import (
	"strings"
	"time"
)

type User struct {
	UserID      uint       `gorm:"primaryKey;column:user_id" json:"user_id"`
	DisplayName string     `gorm:"column:display_name" json:"display_name"`
	Email       string     `gorm:"column:email;unique" json:"email"`
	Password    string     `gorm:"column:password" json:"-"`
	Role        string     `gorm:"column:role;size:50" json:"role"`
	CreateAt    *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt    *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt    *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// TableName overrides
func (User) TableName() string {
	return "users"
}

// Name returns the display name, falling back to the email address.
func (u *User) Name() string {
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	return u.Email
}
