package service

import (
	"time"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
)

// Clock — часы клиники: текущий момент и часовой пояс, в котором живут даты слотов.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

func NewClock(loc *time.Location, now func() time.Time) Clock {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return Clock{loc: loc, now: now}
}

func (c Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Today возвращает сегодняшнюю календарную дату клиники (полночь UTC, см. calendar.CivilDate).
func (c Clock) Today() time.Time {
	return calendar.Today(c.now(), c.loc)
}

func (c Clock) Location() *time.Location {
	return c.loc
}
