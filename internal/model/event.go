package model

import (
	"time"

	"gorm.io/datatypes"
)

// Тип события аудита.
type EventType string

const (
	EventTypeAppointmentBooked    EventType = "appointment_booked"
	EventTypeAppointmentCancelled EventType = "appointment_cancelled"
	EventTypeSlotsGenerated       EventType = "slots_generated"
)

// events — события аудита, они же outbox для Kafka.
type Event struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	EventType   EventType `gorm:"type:varchar(64);not null;index"`
	AggregateID string    `gorm:"type:varchar(64);not null"`

	CreatedAt time.Time `gorm:"not null;index"`

	UserID        *uint64 `gorm:"index"`
	AppointmentID *uint64 `gorm:"index"`

	Payload datatypes.JSON

	// nil, пока не опубликовано.
	PublishedAt *time.Time `gorm:"index"`

	// Навигационные поля
	User        *User        `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	Appointment *Appointment `gorm:"foreignKey:AppointmentID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}
