package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationGeneric    = "generic"
	NotificationNewMessage = "new_message"
)

type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	Message   string     `gorm:"not null"`
	Read      bool       `gorm:"not null;default:false;index"`
	Type      string     `gorm:"not null;default:'generic'"`
	CourseID  *uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
