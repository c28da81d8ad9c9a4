package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PaymentFree = "free"
	PaymentPaid = "paid"
)

// Course - это и курс, и чат-комната: room_id в realtime равен ID курса
type Course struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title       string    `gorm:"not null"`
	Description string
	Payment     string  `gorm:"not null;default:'free';check:payment IN ('free','paid')"`
	Price       float64 `gorm:"default:0"`
	TutorID     uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt   time.Time

	// Связи
	Tutor  User    `gorm:"foreignKey:TutorID"`
	Videos []Video `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
}

func (c *Course) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type Video struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	CourseID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Title      string    `gorm:"not null"`
	URL        string
	Position   int `gorm:"not null;default:0"`
	Transcript string
	CreatedAt  time.Time
}

func (v *Video) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

type Enrollment struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CourseID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}
