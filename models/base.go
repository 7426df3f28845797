package models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel carries identity, timestamps and soft deletion for shared
// entity types. Translation record types do not use it; they embed
// translation.TranslationModel and live or die with their owner.
type BaseModel struct {
	ID        uint           `gorm:"primarykey"`
	CreatedAt time.Time      `gorm:"index"`
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
