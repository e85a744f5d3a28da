package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FAQ struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Question   string     `gorm:"type:text;not null" json:"question"`
	Answer     *string    `gorm:"type:text" json:"answer"`
	AnsweredAt *time.Time `gorm:"index" json:"answered_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (FAQ) TableName() string {
	return "faqs"
}

func (f *FAQ) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == uuid.Nil {
		f.ID, err = uuid.NewV7()
	}
	return
}

func (f *FAQ) Answered() bool {
	return f.Answer != nil && *f.Answer != "" && f.AnsweredAt != nil
}
