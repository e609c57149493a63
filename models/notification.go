package models

import "time"

// NotificationType drives how the client styles a notification.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// Notification is an in-app message for one user, written after a workflow
// event has committed.
type Notification struct {
	NotificationID      uint             `gorm:"primaryKey;column:notification_id" json:"notification_id"`
	UserID              uint             `gorm:"column:user_id;index:idx_notifications_user_read" json:"user_id"`
	Title               string           `gorm:"column:title;size:255" json:"title"`
	Message             string           `gorm:"column:message;type:text" json:"message"`
	Type                NotificationType `gorm:"column:type;size:20" json:"type"`
	EventKey            string           `gorm:"column:event_key;size:50" json:"event_key"`
	RelatedManuscriptID *uint            `gorm:"column:related_manuscript_id;index" json:"related_manuscript_id,omitempty"`
	IsRead              bool             `gorm:"column:is_read;index:idx_notifications_user_read" json:"is_read"`
	CreateAt            time.Time        `gorm:"column:create_at" json:"created_at"`
	UpdateAt            *time.Time       `gorm:"column:update_at" json:"-"`
}

func (Notification) TableName() string { return "notifications" }
