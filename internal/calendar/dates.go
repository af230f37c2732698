package calendar

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04:05"
)

// CivilDate отбрасывает время и зону: год, месяц и день t
// на полуночи UTC. В таком виде даты хранятся в БД и сравниваются.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today — текущая дата в часовом поясе клиники.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc != nil {
		now = now.In(loc)
	}
	return CivilDate(now)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// ParseClock разбирает "HH:MM" или "HH:MM:SS" в смещение от полуночи.
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	layout := ClockLayout
	if strings.Count(s, ":") == 1 {
		layout = "15:04"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return ClockOf(t), nil
}

// ClockOf — смещение от полуночи по настенным часам t.
func ClockOf(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
}

// FormatClock печатает смещение как "HH:MM:SS".
func FormatClock(d time.Duration) string {
	return time.Time{}.Add(d).Format(ClockLayout)
}

// At собирает момент времени из календарной даты и настенного времени в зоне loc.
func At(date time.Time, clock time.Duration, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	h := int(clock / time.Hour)
	mi := int(clock % time.Hour / time.Minute)
	s := int(clock % time.Minute / time.Second)
	return time.Date(y, m, d, h, mi, s, 0, loc)
}
