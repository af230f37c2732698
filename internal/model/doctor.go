package model

import "time"

// doctors
type Doctor struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Name      string    `gorm:"type:varchar(100);not null"`
	Specialty Specialty `gorm:"type:varchar(50);not null;index"`
	City      string    `gorm:"type:varchar(100);not null;index"`
	Phone     string    `gorm:"type:varchar(20)"`
	Email     string    `gorm:"type:varchar(100)"`
	Bio       string    `gorm:"type:text"`

	// default:true — GORM пропускает нулевое значение при Create,
	// выключать врача нужно отдельным Update.
	IsActive bool `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Schedules []Schedule `gorm:"foreignKey:DoctorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
