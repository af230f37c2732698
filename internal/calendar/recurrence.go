package calendar

import (
	"errors"
	"time"
)

var ErrInvalidRule = errors.New("invalid weekly rule")

// WeeklyRule — окно приёма в один день недели.
// Start и End — смещения от полуночи по настенным часам клиники.
type WeeklyRule struct {
	Weekday time.Weekday
	Start   time.Duration
	End     time.Duration
}

func (r WeeklyRule) Validate() error {
	if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
		return ErrInvalidRule
	}
	if r.Start < 0 || r.End > 24*time.Hour || r.End <= r.Start {
		return ErrInvalidRule
	}
	return nil
}

// ExpandWeekly разворачивает правило на days дат начиная с from (включительно).
// from — календарная дата (см. CivilDate); окна возвращаются в том же
// представлении: полночь даты в UTC плюс смещение, без учёта переходов на летнее время.
func ExpandWeekly(rule WeeklyRule, from time.Time, days int) ([]TimeRange, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	from = CivilDate(from)

	var result []TimeRange
	for i := 0; i < days; i++ {
		day := from.AddDate(0, 0, i)
		if day.Weekday() != rule.Weekday {
			continue
		}
		result = append(result, TimeRange{
			Start: day.Add(rule.Start),
			End:   day.Add(rule.End),
		})
	}
	return result, nil
}
