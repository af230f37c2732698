package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
)

func TestSlotGenerator_ThirtyMinuteWindow(t *testing.T) {
	e := newTestEnv(t, monday)
	d := e.doctor(t, "Dr. Carlos Silva", model.SpecialtyCardiology, "São Paulo")
	e.schedule(t, d.ID, model.Monday, "08:00", "10:00", 30)

	res, err := e.generator.Generate(context.Background(), 7)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Created != 4 || res.Duplicates != 0 || res.Skipped != 0 || res.Schedules != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	var slots []model.TimeSlot
	if err := e.db.Order("start_time ASC").Find(&slots).Error; err != nil {
		t.Fatalf("load slots: %v", err)
	}
	want := []string{"08:00:00", "08:30:00", "09:00:00", "09:30:00"}
	for i, s := range slots {
		if s.StartTime.String() != want[i] {
			t.Fatalf("slot %d: expected start %s, got %s", i, want[i], s.StartTime.String())
		}
		if time.Duration(s.EndTime)-time.Duration(s.StartTime) != 30*time.Minute {
			t.Fatalf("slot %d: expected 30 minutes", i)
		}
		if got := time.Time(s.Date).Format(calendar.DateLayout); got != "2030-01-07" {
			t.Fatalf("slot %d: expected date 2030-01-07, got %s", i, got)
		}
		if !s.IsAvailable {
			t.Fatalf("slot %d: expected available", i)
		}
	}

	if n := e.count(t, &model.Event{}, "event_type = ?", model.EventTypeSlotsGenerated); n != 1 {
		t.Fatalf("expected one slots_generated event, got %d", n)
	}
}

func TestSlotGenerator_DropsTrailingPartialSlot(t *testing.T) {
	e := newTestEnv(t, monday)
	d := e.doctor(t, "Dra. Maria Santos", model.SpecialtyDermatology, "Rio de Janeiro")
	e.schedule(t, d.ID, model.Monday, "08:00", "09:00", 45)

	res, err := e.generator.Generate(context.Background(), 7)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Created != 1 {
		t.Fatalf("expected exactly one slot, got %+v", res)
	}

	var s model.TimeSlot
	if err := e.db.First(&s).Error; err != nil {
		t.Fatalf("load slot: %v", err)
	}
	if s.StartTime.String() != "08:00:00" || s.EndTime.String() != "08:45:00" {
		t.Fatalf("expected 08:00-08:45, got %s-%s", s.StartTime.String(), s.EndTime.String())
	}
}

func TestSlotGenerator_HorizonCoversEveryMatchingWeekday(t *testing.T) {
	e := newTestEnv(t, monday)
	d := e.doctor(t, "Dr. Carlos Silva", model.SpecialtyCardiology, "São Paulo")
	e.schedule(t, d.ID, model.Monday, "08:00", "09:00", 30)
	e.schedule(t, d.ID, model.Wednesday, "14:00", "15:00", 30)

	res, err := e.generator.Generate(context.Background(), 14)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	// 2 понедельника и 2 среды, по 2 слота
	if res.Created != 8 {
		t.Fatalf("expected 8 slots, got %+v", res)
	}
	if n := e.count(t, &model.TimeSlot{}, "date = ?", day(2030, 1, 16)); n != 2 {
		t.Fatalf("expected 2 slots on wednesday 2030-01-16, got %d", n)
	}
}

func TestSlotGenerator_Idempotent(t *testing.T) {
	e := newTestEnv(t, monday)
	d := e.doctor(t, "Dr. Carlos Silva", model.SpecialtyCardiology, "São Paulo")
	e.schedule(t, d.ID, model.Monday, "08:00", "10:00", 30)

	if _, err := e.generator.Generate(context.Background(), 7); err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	res, err := e.generator.Generate(context.Background(), 7)
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if res.Created != 0 || res.Duplicates != 4 {
		t.Fatalf("expected second run to only see duplicates, got %+v", res)
	}
	if n := e.count(t, &model.TimeSlot{}); n != 4 {
		t.Fatalf("expected 4 slots in total, got %d", n)
	}
}

func TestSlotGenerator_SkipsMalformedSchedules(t *testing.T) {
	e := newTestEnv(t, monday)
	d := e.doctor(t, "Dr. Carlos Silva", model.SpecialtyCardiology, "São Paulo")
	e.schedule(t, d.ID, model.Monday, "08:00", "09:00", 30)
	e.schedule(t, d.ID, model.Monday, "10:00", "11:00", -15)
	e.schedule(t, d.ID, model.Monday, "12:00", "11:00", 30)

	missing := model.Schedule{DoctorID: d.ID, DayOfWeek: model.Monday, SlotDuration: 30, IsActive: true}
	if err := e.db.Create(&missing).Error; err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	res, err := e.generator.Generate(context.Background(), 7)
	if err != nil {
		t.Fatalf("Generate must not fail on malformed schedules: %v", err)
	}
	if res.Skipped != 3 || res.Created != 2 {
		t.Fatalf("expected 3 skipped and 2 created, got %+v", res)
	}
}

func TestSlotGenerator_IgnoresInactiveSchedules(t *testing.T) {
	e := newTestEnv(t, monday)
	d := e.doctor(t, "Dr. Carlos Silva", model.SpecialtyCardiology, "São Paulo")
	s := e.schedule(t, d.ID, model.Monday, "08:00", "09:00", 30)
	if err := e.scheduleSvc.Deactivate(context.Background(), s.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	res, err := e.generator.Generate(context.Background(), 7)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Schedules != 0 || res.Created != 0 {
		t.Fatalf("expected nothing generated, got %+v", res)
	}
}

func TestPlanSlots_Errors(t *testing.T) {
	start, end := clockAt(t, "08:00"), clockAt(t, "09:00")

	cases := []model.Schedule{
		{ID: 1, DayOfWeek: model.Monday, StartTime: start, EndTime: end, SlotDuration: 0},
		{ID: 2, DayOfWeek: "funday", StartTime: start, EndTime: end, SlotDuration: 30},
		{ID: 3, DayOfWeek: model.Monday, StartTime: nil, EndTime: end, SlotDuration: 30},
		{ID: 4, DayOfWeek: model.Monday, StartTime: end, EndTime: start, SlotDuration: 30},
	}
	for _, s := range cases {
		if _, err := PlanSlots(s, day(2030, 1, 7), 7); !errors.Is(err, ErrMalformedSchedule) {
			t.Fatalf("schedule %d: expected ErrMalformedSchedule, got %v", s.ID, err)
		}
	}
}
