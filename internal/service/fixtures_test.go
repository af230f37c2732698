package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/db/dbtest"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

// 2030-01-07 — понедельник.
var monday = time.Date(2030, 1, 7, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	db  *gorm.DB
	now time.Time

	slots        *repository.GormSlotRepository
	appointments *repository.GormAppointmentRepository
	users        *repository.GormUserRepository
	doctors      *repository.GormDoctorRepository
	schedules    *repository.GormScheduleRepository
	events       *repository.GormEventRepository

	generator    *SlotGenerator
	availability *AvailabilityService
	booking      *BookingService
	orchestrator *Orchestrator
	scheduleSvc  *ScheduleService
	userSvc      *UserService
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()

	e := &testEnv{db: dbtest.New(t), now: now}
	clock := NewClock(time.UTC, func() time.Time { return e.now })
	log := zerolog.Nop()

	e.slots = repository.NewGormSlotRepository(e.db)
	e.appointments = repository.NewGormAppointmentRepository(e.db)
	e.users = repository.NewGormUserRepository(e.db)
	e.doctors = repository.NewGormDoctorRepository(e.db)
	e.schedules = repository.NewGormScheduleRepository(e.db)
	e.events = repository.NewGormEventRepository(e.db)

	e.generator = NewSlotGenerator(e.schedules, e.slots, e.events, clock, DefaultHorizonDays, log)
	e.availability = NewAvailabilityService(e.slots, e.doctors, clock)
	e.booking = NewBookingService(e.db, e.slots, e.appointments, e.users, e.events, clock, log)
	e.orchestrator = NewOrchestrator(e.availability, e.booking, log)
	e.scheduleSvc = NewScheduleService(e.schedules, e.doctors, log)
	e.userSvc = NewUserService(e.users, log)
	return e
}

func clockAt(t *testing.T, s string) *datatypes.Time {
	t.Helper()
	d, err := calendar.ParseClock(s)
	if err != nil {
		t.Fatalf("parse clock %q: %v", s, err)
	}
	v := datatypes.Time(d)
	return &v
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func (e *testEnv) doctor(t *testing.T, name string, specialty model.Specialty, city string) model.Doctor {
	t.Helper()
	d := model.Doctor{Name: name, Specialty: specialty, City: city, IsActive: true}
	if err := e.db.Create(&d).Error; err != nil {
		t.Fatalf("create doctor: %v", err)
	}
	return d
}

func (e *testEnv) schedule(t *testing.T, doctorID uint64, dow model.DayOfWeek, start, end string, minutes int) model.Schedule {
	t.Helper()
	s := model.Schedule{
		DoctorID:        doctorID,
		DayOfWeek:       dow,
		StartTime:       clockAt(t, start),
		EndTime:         clockAt(t, end),
		SlotDuration:    minutes,
		MaxAppointments: 1,
		IsActive:        true,
	}
	if err := e.db.Create(&s).Error; err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	return s
}

func (e *testEnv) user(t *testing.T, name string) model.User {
	t.Helper()
	u := model.User{Name: name, Email: fmt.Sprintf("%s@example.com", name), IsActive: true}
	if err := e.db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// slot создаёт свободный слот напрямую, минуя генератор.
func (e *testEnv) slot(t *testing.T, scheduleID uint64, date time.Time, start, end string) model.TimeSlot {
	t.Helper()
	s := model.TimeSlot{
		ScheduleID:  scheduleID,
		Date:        datatypes.Date(date),
		StartTime:   *clockAt(t, start),
		EndTime:     *clockAt(t, end),
		IsAvailable: true,
	}
	if err := e.db.Create(&s).Error; err != nil {
		t.Fatalf("create slot: %v", err)
	}
	return s
}

func (e *testEnv) takeSlot(t *testing.T, id uint64) {
	t.Helper()
	if err := e.db.Model(&model.TimeSlot{}).Where("id = ?", id).Update("is_available", false).Error; err != nil {
		t.Fatalf("take slot: %v", err)
	}
}

func (e *testEnv) reloadSlot(t *testing.T, id uint64) model.TimeSlot {
	t.Helper()
	var s model.TimeSlot
	if err := e.db.First(&s, "id = ?", id).Error; err != nil {
		t.Fatalf("reload slot: %v", err)
	}
	return s
}

func (e *testEnv) count(t *testing.T, m any, where ...any) int64 {
	t.Helper()
	q := e.db.Model(m)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
