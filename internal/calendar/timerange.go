package calendar

import (
	"errors"
	"time"
)

var (
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrSlotDuration     = errors.New("slot duration must be positive")
)

// TimeRange представляет временной интервал [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange создаёт интервал; конец обязан быть строго позже начала.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return TimeRange{}, ErrInvalidTimeRange
	}
	return TimeRange{Start: start, End: end}, nil
}

func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// SplitWindow режет окно на подряд идущие слоты длительностью slotDuration
// начиная с tr.Start. "Хвост" короче slotDuration отбрасывается.
func SplitWindow(tr TimeRange, slotDuration time.Duration) ([]TimeRange, error) {
	if slotDuration <= 0 {
		return nil, ErrSlotDuration
	}
	if !tr.End.After(tr.Start) {
		return []TimeRange{}, nil
	}

	slots := make([]TimeRange, 0, int(tr.Duration()/slotDuration))
	for cur := tr.Start; !cur.Add(slotDuration).After(tr.End); cur = cur.Add(slotDuration) {
		slots = append(slots, TimeRange{Start: cur, End: cur.Add(slotDuration)})
	}
	return slots, nil
}

// HasOverlap проверяет, пересекается ли newRange с existing.
// Касание концами пересечением не считается.
func HasOverlap(newRange TimeRange, existing []TimeRange) (bool, []TimeRange) {
	var conflicts []TimeRange

	for _, tr := range existing {
		if overlaps(newRange, tr) {
			conflicts = append(conflicts, tr)
		}
	}

	return len(conflicts) > 0, conflicts
}

func overlaps(a, b TimeRange) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}
