package model

import (
	"time"

	"gorm.io/datatypes"
)

// time_slots — конкретный интервал приёма, порождённый расписанием.
type TimeSlot struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	ScheduleID uint64         `gorm:"column:doctor_schedule_id;not null;uniqueIndex:idx_time_slots_schedule_date_start,priority:1"`
	Date       datatypes.Date `gorm:"not null;index:idx_time_slots_date;uniqueIndex:idx_time_slots_schedule_date_start,priority:2"`
	StartTime  datatypes.Time `gorm:"not null;uniqueIndex:idx_time_slots_schedule_date_start,priority:3"`
	EndTime    datatypes.Time `gorm:"not null"`

	// Флаг занятости меняется только условным UPDATE (см. SlotRepository.MarkBooked).
	IsAvailable bool `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Schedule *Schedule `gorm:"foreignKey:ScheduleID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}
