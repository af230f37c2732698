package model

import (
	"time"

	"gorm.io/datatypes"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

// Active сообщает, удерживает ли запись слот.
func (s AppointmentStatus) Active() bool {
	return s != AppointmentStatusCancelled
}

// appointments
type Appointment struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Protocol string `gorm:"type:varchar(20);not null;uniqueIndex"`

	UserID   uint64 `gorm:"not null;index"`
	DoctorID uint64 `gorm:"not null;index"`

	// Не более одной неотменённой записи на слот.
	TimeSlotID uint64 `gorm:"not null;uniqueIndex:idx_appointments_active_slot,where:status <> 'cancelled'"`

	// Копия даты и времени слота на момент записи.
	AppointmentDate datatypes.Date `gorm:"not null;index"`
	AppointmentTime datatypes.Time `gorm:"not null"`

	Status             AppointmentStatus `gorm:"type:varchar(20);not null;default:'scheduled';index"`
	Notes              string            `gorm:"type:text"`
	CancellationReason string            `gorm:"type:text"`
	CancelledAt        *time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	User     *User     `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Doctor   *Doctor   `gorm:"foreignKey:DoctorID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	TimeSlot *TimeSlot `gorm:"foreignKey:TimeSlotID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}
