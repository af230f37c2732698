package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

type bookingFixture struct {
	doctor model.Doctor
	sch    model.Schedule
	slot   model.TimeSlot // вторник 2030-01-08 09:00
	alice  model.User
	bob    model.User
}

func seedBooking(t *testing.T, e *testEnv) bookingFixture {
	t.Helper()
	f := bookingFixture{doctor: e.doctor(t, "Dr. Carlos Silva", model.SpecialtyCardiology, "São Paulo")}
	f.sch = e.schedule(t, f.doctor.ID, model.Tuesday, "08:00", "12:00", 30)
	f.slot = e.slot(t, f.sch.ID, day(2030, 1, 8), "09:00", "09:30")
	f.alice = e.user(t, "alice")
	f.bob = e.user(t, "bob")
	return f
}

func TestBook_Success(t *testing.T) {
	e := newTestEnv(t, monday)
	f := seedBooking(t, e)

	appt, err := e.booking.Book(context.Background(), f.alice.ID, f.slot.ID, "first visit")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	if appt.Status != model.AppointmentStatusScheduled {
		t.Fatalf("expected scheduled, got %s", appt.Status)
	}
	if !strings.HasPrefix(appt.Protocol, "AGD-") || appt.Protocol != strings.ToUpper(appt.Protocol) {
		t.Fatalf("unexpected protocol %q", appt.Protocol)
	}
	if appt.DoctorID != f.doctor.ID || appt.TimeSlotID != f.slot.ID || appt.UserID != f.alice.ID {
		t.Fatalf("appointment references are wrong: %+v", appt)
	}
	if appt.AppointmentTime.String() != "09:00:00" {
		t.Fatalf("expected appointment time 09:00:00, got %s", appt.AppointmentTime.String())
	}
	if appt.Doctor == nil || appt.Doctor.Name != f.doctor.Name {
		t.Fatalf("doctor must be attached to the result")
	}

	if e.reloadSlot(t, f.slot.ID).IsAvailable {
		t.Fatalf("slot must be taken after booking")
	}
	if n := e.count(t, &model.Event{}, "event_type = ?", model.EventTypeAppointmentBooked); n != 1 {
		t.Fatalf("expected a booked event, got %d", n)
	}
}

func TestBook_Preconditions(t *testing.T) {
	e := newTestEnv(t, monday)
	f := seedBooking(t, e)
	ctx := context.Background()

	if _, err := e.booking.Book(ctx, f.alice.ID, 9999, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing slot: expected ErrNotFound, got %v", err)
	}

	past := e.slot(t, f.sch.ID, day(2030, 1, 1), "09:00", "09:30")
	if _, err := e.booking.Book(ctx, f.alice.ID, past.ID, ""); !errors.Is(err, ErrConflict) {
		t.Fatalf("past slot: expected ErrConflict, got %v", err)
	} else if Message(err) != "cannot book past dates" {
		t.Fatalf("unexpected message %q", Message(err))
	}

	if _, err := e.booking.Book(ctx, 4242, f.slot.ID, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown user: expected ErrNotFound, got %v", err)
	}

	// занятость проверяется раньше пользователя
	e.takeSlot(t, f.slot.ID)
	_, err := e.booking.Book(ctx, 4242, f.slot.ID, "")
	if !errors.Is(err, ErrConflict) || Message(err) != "time slot is no longer available" {
		t.Fatalf("taken slot: expected no longer available conflict, got %v", err)
	}

	if n := e.count(t, &model.Appointment{}); n != 0 {
		t.Fatalf("failed bookings must not leave appointments, got %d", n)
	}
}

func TestBook_TodayIsBookable(t *testing.T) {
	e := newTestEnv(t, monday)
	f := seedBooking(t, e)
	today := e.slot(t, f.sch.ID, day(2030, 1, 7), "15:00", "15:30")

	if _, err := e.booking.Book(context.Background(), f.alice.ID, today.ID, ""); err != nil {
		t.Fatalf("slot dated today must be bookable: %v", err)
	}
}

func TestBook_InactiveDoctorIsNotResolvable(t *testing.T) {
	e := newTestEnv(t, monday)
	f := seedBooking(t, e)
	if err := e.db.Model(&model.Doctor{}).Where("id = ?", f.doctor.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate doctor: %v", err)
	}

	if _, err := e.booking.Book(context.Background(), f.alice.ID, f.slot.ID, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !e.reloadSlot(t, f.slot.ID).IsAvailable {
		t.Fatalf("slot must stay available")
	}
}

func TestBook_DeactivatedScheduleKeepsSlotsBookable(t *testing.T) {
	e := newTestEnv(t, monday)
	f := seedBooking(t, e)
	ctx := context.Background()

	if err := e.scheduleSvc.Deactivate(ctx, f.sch.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	groups, err := e.availability.Query(ctx, AvailabilityFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !availableOn(groups, "2030-01-08", f.slot.ID) {
		t.Fatalf("generated slot must stay visible after deactivation")
	}

	if _, err := e.booking.Book(ctx, f.alice.ID, f.slot.ID, ""); err != nil {
		t.Fatalf("Book on deactivated schedule: %v", err)
	}
}

func TestBook_ConcurrentRequestsOnlyOneWins(t *testing.T) {
	e := newTestEnv(t, monday)
	f := seedBooking(t, e)

	const n = 10
	users := make([]model.User, n)
	for i := range users {
		users[i] = e.user(t, fmt.Sprintf("patient%d", i))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		other     []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(u model.User) {
			defer wg.Done()
			_, err := e.booking.Book(context.Background(), u.ID, f.slot.ID, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				other = append(other, err)
			}
		}(users[i])
	}
	wg.Wait()

	if len(other) > 0 {
		t.Fatalf("unexpected errors: %v", other)
	}
	if successes != 1 || conflicts != n-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d and %d", n-1, successes, conflicts)
	}
	if cnt := e.count(t, &model.Appointment{}, "time_slot_id = ?", f.slot.ID); cnt != 1 {
		t.Fatalf("expected exactly one appointment for the slot, got %d", cnt)
	}
}

func TestBook_RegeneratesCollidingProtocol(t *testing.T) {
	e := newTestEnv(t, monday)
	f := seedBooking(t, e)
	other := e.slot(t, f.sch.ID, day(2030, 1, 8), "09:30", "10:00")

	protocols := []string{"AGD-TAKEN", "AGD-TAKEN", "AGD-FRESH"}
	e.booking.newProtocol = func(time.Time) string {
		p := protocols[0]
		protocols = protocols[1:]
		return p
	}

	if _, err := e.booking.Book(context.Background(), f.alice.ID, f.slot.ID, ""); err != nil {
		t.Fatalf("first Book: %v", err)
	}
	appt, err := e.booking.Book(context.Background(), f.bob.ID, other.ID, "")
	if err != nil {
		t.Fatalf("second Book must retry the protocol: %v", err)
	}
	if appt.Protocol != "AGD-FRESH" {
		t.Fatalf("expected regenerated protocol, got %s", appt.Protocol)
	}
}

func TestBook_GivesUpAfterRepeatedCollisions(t *testing.T) {
	e := newTestEnv(t, monday)
	f := seedBooking(t, e)
	other := e.slot(t, f.sch.ID, day(2030, 1, 8), "09:30", "10:00")

	e.booking.newProtocol = func(time.Time) string { return "AGD-SAME" }

	if _, err := e.booking.Book(context.Background(), f.alice.ID, f.slot.ID, ""); err != nil {
		t.Fatalf("first Book: %v", err)
	}
	if _, err := e.booking.Book(context.Background(), f.bob.ID, other.ID, ""); err == nil {
		t.Fatalf("expected error after exhausting protocol attempts")
	}
	if !e.reloadSlot(t, other.ID).IsAvailable {
		t.Fatalf("failed booking must roll back the slot")
	}
	if n := e.count(t, &model.Event{}, "event_type = ?", model.EventTypeAppointmentBooked); n != 1 {
		t.Fatalf("failed booking must not leave events, got %d", n)
	}
}

// 2030-01-06 08:00: до приёма во вторник больше суток.
var sunday = time.Date(2030, 1, 6, 8, 0, 0, 0, time.UTC)

func availableOn(groups []DateGroup, date string, slotID uint64) bool {
	for _, g := range groups {
		if g.Date != date {
			continue
		}
		for _, d := range g.Doctors {
			for _, sv := range d.Slots {
				if sv.ID == slotID {
					return true
				}
			}
		}
	}
	return false
}

func TestCancel_ReleasesSlot(t *testing.T) {
	e := newTestEnv(t, sunday)
	f := seedBooking(t, e)
	ctx := context.Background()

	appt, err := e.booking.Book(ctx, f.alice.ID, f.slot.ID, "")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	cancelled, err := e.booking.Cancel(ctx, f.alice.ID, appt.ID, "travel")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != model.AppointmentStatusCancelled || cancelled.CancellationReason != "travel" || cancelled.CancelledAt == nil {
		t.Fatalf("unexpected cancelled appointment %+v", cancelled)
	}
	if !e.reloadSlot(t, f.slot.ID).IsAvailable {
		t.Fatalf("slot must be available after cancellation")
	}

	groups, err := e.availability.Query(ctx, AvailabilityFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !availableOn(groups, "2030-01-08", f.slot.ID) {
		t.Fatalf("cancelled slot must be listed on 2030-01-08 again, got %+v", groups)
	}

	// слот снова можно занять
	if _, err := e.booking.Book(ctx, f.bob.ID, f.slot.ID, ""); err != nil {
		t.Fatalf("re-booking released slot: %v", err)
	}

	if _, err := e.booking.Cancel(ctx, f.alice.ID, appt.ID, ""); !errors.Is(err, ErrConflict) {
		t.Fatalf("second cancel: expected ErrConflict, got %v", err)
	}
}

func TestCancel_TwentyFourHourBoundary(t *testing.T) {
	appointmentStart := time.Date(2030, 1, 8, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		lead    time.Duration
		wantErr error
	}{
		{name: "23h59m before", lead: 23*time.Hour + 59*time.Minute, wantErr: ErrConflict},
		{name: "exactly 24h before", lead: 24 * time.Hour, wantErr: ErrConflict},
		{name: "24h01m before", lead: 24*time.Hour + time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t, time.Date(2030, 1, 6, 8, 0, 0, 0, time.UTC))
			f := seedBooking(t, e)

			appt, err := e.booking.Book(context.Background(), f.alice.ID, f.slot.ID, "")
			if err != nil {
				t.Fatalf("Book: %v", err)
			}

			e.now = appointmentStart.Add(-tt.lead)
			_, err = e.booking.Cancel(context.Background(), f.alice.ID, appt.ID, "")
			if tt.wantErr == nil && err != nil {
				t.Fatalf("expected cancellation to succeed, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr != nil && e.reloadSlot(t, f.slot.ID).IsAvailable {
				t.Fatalf("rejected cancellation must keep the slot taken")
			}
		})
	}
}

func TestCancel_UsesClinicTimeZone(t *testing.T) {
	e := newTestEnv(t, sunday)
	f := seedBooking(t, e)
	brt := time.FixedZone("BRT", -3*3600)
	e.booking.clock = NewClock(brt, func() time.Time { return e.now })

	appt, err := e.booking.Book(context.Background(), f.alice.ID, f.slot.ID, "")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	// 09:00 BRT = 12:00 UTC; в 11:30 UTC накануне до приёма 24ч30м
	e.now = time.Date(2030, 1, 7, 11, 30, 0, 0, time.UTC)
	if _, err := e.booking.Cancel(context.Background(), f.alice.ID, appt.ID, ""); err != nil {
		t.Fatalf("expected cancellation in clinic zone to succeed, got %v", err)
	}
}

func TestCancel_OwnershipAndExistence(t *testing.T) {
	e := newTestEnv(t, sunday)
	f := seedBooking(t, e)
	ctx := context.Background()

	if _, err := e.booking.Cancel(ctx, f.alice.ID, 777, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	appt, err := e.booking.Book(ctx, f.alice.ID, f.slot.ID, "")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if _, err := e.booking.Cancel(ctx, f.bob.ID, appt.ID, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if e.reloadSlot(t, f.slot.ID).IsAvailable {
		t.Fatalf("forbidden cancellation must not release the slot")
	}

	// чужая отменённая запись: всё равно Forbidden
	if _, err := e.booking.Cancel(ctx, f.alice.ID, appt.ID, ""); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := e.booking.Cancel(ctx, f.bob.ID, appt.ID, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden regardless of state, got %v", err)
	}
}

func TestReads(t *testing.T) {
	e := newTestEnv(t, monday)
	f := seedBooking(t, e)
	ctx := context.Background()

	early := e.slot(t, f.sch.ID, day(2030, 1, 8), "08:00", "08:30")
	later := e.slot(t, f.sch.ID, day(2030, 1, 15), "08:00", "08:30")

	for _, id := range []uint64{later.ID, f.slot.ID, early.ID} {
		if _, err := e.booking.Book(ctx, f.alice.ID, id, ""); err != nil {
			t.Fatalf("Book %d: %v", id, err)
		}
	}

	appts, err := e.booking.GetUserAppointments(ctx, f.alice.ID)
	if err != nil {
		t.Fatalf("GetUserAppointments: %v", err)
	}
	if len(appts) != 3 {
		t.Fatalf("expected 3 appointments, got %d", len(appts))
	}
	order := []uint64{early.ID, f.slot.ID, later.ID}
	for i, a := range appts {
		if a.TimeSlotID != order[i] {
			t.Fatalf("appointment %d: expected slot %d, got %d", i, order[i], a.TimeSlotID)
		}
		if a.Doctor == nil {
			t.Fatalf("doctor must be preloaded")
		}
	}

	none, err := e.booking.GetUserAppointments(ctx, f.bob.ID)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no appointments for bob, got %v %v", none, err)
	}

	if _, err := e.booking.GetAppointmentDetails(ctx, f.bob.ID, appts[0].ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := e.booking.GetAppointmentDetails(ctx, f.alice.ID, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	got, err := e.booking.GetAppointmentDetails(ctx, f.alice.ID, appts[0].ID)
	if err != nil || got.TimeSlot == nil {
		t.Fatalf("expected details with slot, got %v %v", got, err)
	}
}
