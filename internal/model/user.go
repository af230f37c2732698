package model

import (
	"time"

	"gorm.io/datatypes"
)

// users — локальная копия пациента; аутентификация живёт во внешнем сервисе.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Name      string          `gorm:"type:varchar(100);not null"`
	Email     string          `gorm:"type:varchar(100);not null;uniqueIndex"`
	Phone     string          `gorm:"type:varchar(20)"`
	BirthDate *datatypes.Date `gorm:"type:date"`

	IsActive bool `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
