package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

func mustTime(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestSplitWindow_ThirtyMinutes(t *testing.T) {
	tr := TimeRange{
		Start: mustTime(t, 2030, 1, 7, 8, 0),
		End:   mustTime(t, 2030, 1, 7, 10, 0),
	}

	slots, err := SplitWindow(tr, 30*time.Minute)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := []string{"08:00-08:30", "08:30-09:00", "09:00-09:30", "09:30-10:00"}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(slots))
	}
	for i, s := range slots {
		got := s.Start.Format("15:04") + "-" + s.End.Format("15:04")
		if got != want[i] {
			t.Fatalf("slot %d: expected %s, got %s", i, want[i], got)
		}
	}
}

func TestSplitWindow_DropsPartialTail(t *testing.T) {
	tr := TimeRange{
		Start: mustTime(t, 2030, 1, 7, 8, 0),
		End:   mustTime(t, 2030, 1, 7, 9, 0),
	}

	slots, err := SplitWindow(tr, 45*time.Minute)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("expected exactly one slot, got %d", len(slots))
	}
	if !slots[0].End.Equal(mustTime(t, 2030, 1, 7, 8, 45)) {
		t.Fatalf("expected slot to end at 08:45, got %v", slots[0].End)
	}
}

func TestSplitWindow_InvalidDuration(t *testing.T) {
	tr := TimeRange{Start: mustTime(t, 2030, 1, 7, 8, 0), End: mustTime(t, 2030, 1, 7, 9, 0)}

	for _, d := range []time.Duration{0, -15 * time.Minute} {
		if _, err := SplitWindow(tr, d); !errors.Is(err, ErrSlotDuration) {
			t.Fatalf("duration %v: expected ErrSlotDuration, got %v", d, err)
		}
	}
}

func TestSplitWindow_EmptyWindow(t *testing.T) {
	at := mustTime(t, 2030, 1, 7, 8, 0)
	slots, err := SplitWindow(TimeRange{Start: at, End: at}, 30*time.Minute)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestNewTimeRange(t *testing.T) {
	start := mustTime(t, 2030, 1, 7, 8, 0)
	end := mustTime(t, 2030, 1, 7, 9, 0)

	tr, err := NewTimeRange(start, end)
	if err != nil {
		t.Fatalf("NewTimeRange: %v", err)
	}
	if tr.Duration() != time.Hour {
		t.Fatalf("expected 1h, got %s", tr.Duration())
	}

	for _, c := range [][2]time.Time{{end, start}, {start, start}, {time.Time{}, end}} {
		if _, err := NewTimeRange(c[0], c[1]); !errors.Is(err, ErrInvalidTimeRange) {
			t.Fatalf("NewTimeRange(%s, %s): expected ErrInvalidTimeRange, got %v", c[0], c[1], err)
		}
	}
}

func TestHasOverlap(t *testing.T) {
	base := TimeRange{Start: mustTime(t, 2030, 1, 7, 10, 0), End: mustTime(t, 2030, 1, 7, 12, 0)}
	existing := []TimeRange{
		{Start: mustTime(t, 2030, 1, 7, 8, 0), End: mustTime(t, 2030, 1, 7, 10, 0)},  // касание
		{Start: mustTime(t, 2030, 1, 7, 11, 0), End: mustTime(t, 2030, 1, 7, 13, 0)}, // пересечение
		{Start: mustTime(t, 2030, 1, 7, 14, 0), End: mustTime(t, 2030, 1, 7, 15, 0)},
	}

	ok, conflicts := HasOverlap(base, existing)
	if !ok {
		t.Fatalf("expected overlap")
	}
	if len(conflicts) != 1 || !conflicts[0].Start.Equal(existing[1].Start) {
		t.Fatalf("expected only the 11:00 range to conflict, got %v", conflicts)
	}

	if ok, _ := HasOverlap(base, existing[:1]); ok {
		t.Fatalf("touching ranges must not overlap")
	}
}

func TestExpandWeekly(t *testing.T) {
	rule := WeeklyRule{Weekday: time.Monday, Start: 8 * time.Hour, End: 12 * time.Hour}

	// 2030-01-07 — понедельник
	from := mustTime(t, 2030, 1, 7, 15, 30)

	windows, err := ExpandWeekly(rule, from, 14)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(windows) != 2 {
		t.Fatalf("expected 2 mondays in 14 days, got %d", len(windows))
	}
	if !windows[0].Start.Equal(mustTime(t, 2030, 1, 7, 8, 0)) {
		t.Fatalf("first window must start on the from date, got %v", windows[0].Start)
	}
	if !windows[1].End.Equal(mustTime(t, 2030, 1, 14, 12, 0)) {
		t.Fatalf("unexpected second window %v", windows[1])
	}

	windows, err = ExpandWeekly(rule, mustTime(t, 2030, 1, 8, 0, 0), 6)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(windows) != 0 {
		t.Fatalf("expected no monday between tue and sun, got %d", len(windows))
	}
}

func TestExpandWeekly_InvalidRule(t *testing.T) {
	rules := []WeeklyRule{
		{Weekday: time.Monday, Start: 10 * time.Hour, End: 9 * time.Hour},
		{Weekday: time.Monday, Start: 10 * time.Hour, End: 10 * time.Hour},
		{Weekday: time.Weekday(9), Start: 8 * time.Hour, End: 9 * time.Hour},
	}
	for _, r := range rules {
		if _, err := ExpandWeekly(r, mustTime(t, 2030, 1, 7, 0, 0), 7); !errors.Is(err, ErrInvalidRule) {
			t.Fatalf("rule %+v: expected ErrInvalidRule, got %v", r, err)
		}
	}
}

func TestTodayUsesClinicZone(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	// 01:00 UTC 8 января — ещё 7 января в клинике
	now := mustTime(t, 2030, 1, 8, 1, 0)

	today := Today(now, loc)
	if !today.Equal(mustTime(t, 2030, 1, 7, 0, 0)) {
		t.Fatalf("expected 2030-01-07, got %v", today)
	}
}

func TestParseClockAndAt(t *testing.T) {
	short, err := ParseClock("09:30")
	if err != nil {
		t.Fatalf("ParseClock short: %v", err)
	}
	long, err := ParseClock("09:30:00")
	if err != nil {
		t.Fatalf("ParseClock long: %v", err)
	}
	if short != long || short != 9*time.Hour+30*time.Minute {
		t.Fatalf("unexpected clocks %v %v", short, long)
	}
	if _, err := ParseClock("9h30"); err == nil {
		t.Fatalf("expected error for malformed clock")
	}

	loc := time.FixedZone("BRT", -3*3600)
	at := At(mustTime(t, 2030, 1, 7, 0, 0), short, loc)
	if !at.Equal(time.Date(2030, 1, 7, 12, 30, 0, 0, time.UTC)) {
		t.Fatalf("expected 12:30 UTC, got %v", at.UTC())
	}
	if FormatClock(short) != "09:30:00" {
		t.Fatalf("unexpected FormatClock %q", FormatClock(short))
	}
}

func TestFormatSlotForPatient(t *testing.T) {
	got := FormatSlotForPatient(mustTime(t, 2030, 1, 7, 0, 0), 9*time.Hour, 9*time.Hour+30*time.Minute)
	want := "segunda-feira, 07/01/2030, 09:00–09:30"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	p := Paginate(items, 2, 2)
	if len(p.Items) != 2 || p.Items[0] != 3 || !p.HasNext || !p.HasPrev || p.Total != 5 {
		t.Fatalf("unexpected page %+v", p)
	}

	p = Paginate(items, 10, 2)
	if len(p.Items) != 0 || p.HasNext {
		t.Fatalf("expected empty trailing page, got %+v", p)
	}

	p = Paginate(items, 0, 0)
	if p.Page != 1 || p.PageSize != DefaultPageSize || len(p.Items) != 5 {
		t.Fatalf("expected defaults, got %+v", p)
	}
}

type fakeUserStore struct {
	users map[uint64]*model.User
}

func (s fakeUserStore) GetByID(_ context.Context, id uint64) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func TestValidateUser(t *testing.T) {
	store := fakeUserStore{users: map[uint64]*model.User{
		1: {ID: 1, Name: "Ana", IsActive: true},
		2: {ID: 2, Name: "Bruno", IsActive: false},
	}}
	ctx := context.Background()

	if _, err := ValidateUser(ctx, store, 0); !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("expected ErrInvalidUserID, got %v", err)
	}
	if _, err := ValidateUser(ctx, store, 42); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := ValidateUser(ctx, store, 2); !errors.Is(err, ErrUserInactive) {
		t.Fatalf("expected ErrUserInactive, got %v", err)
	}
	u, err := ValidateUser(ctx, store, 1)
	if err != nil || u.Name != "Ana" {
		t.Fatalf("expected active user, got %v %v", u, err)
	}
}
