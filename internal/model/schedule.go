package model

import (
	"time"

	"gorm.io/datatypes"
)

// День недели в недельном правиле расписания.
type DayOfWeek string

const (
	Monday    DayOfWeek = "monday"
	Tuesday   DayOfWeek = "tuesday"
	Wednesday DayOfWeek = "wednesday"
	Thursday  DayOfWeek = "thursday"
	Friday    DayOfWeek = "friday"
	Saturday  DayOfWeek = "saturday"
	Sunday    DayOfWeek = "sunday"
)

var weekdays = map[DayOfWeek]time.Weekday{
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
	Sunday:    time.Sunday,
}

// Weekday переводит значение в time.Weekday; false для неизвестного дня.
func (d DayOfWeek) Weekday() (time.Weekday, bool) {
	w, ok := weekdays[d]
	return w, ok
}

func DayOfWeekOf(w time.Weekday) DayOfWeek {
	for d, wd := range weekdays {
		if wd == w {
			return d
		}
	}
	return ""
}

// doctor_schedules — недельное правило приёма врача.
type Schedule struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	DoctorID  uint64    `gorm:"not null;index"`
	DayOfWeek DayOfWeek `gorm:"type:varchar(10);not null"`

	// Настенное время клиники. nil означает битую запись, генератор её пропускает.
	StartTime *datatypes.Time
	EndTime   *datatypes.Time

	SlotDuration    int  `gorm:"not null;default:30"` // минут
	MaxAppointments int  `gorm:"not null;default:1"`
	IsActive        bool `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Doctor *Doctor `gorm:"foreignKey:DoctorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Schedule) TableName() string {
	return "doctor_schedules"
}
