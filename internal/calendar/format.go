package calendar

import (
	"fmt"
	"time"
)

var ptWeekdays = map[time.Weekday]string{
	time.Monday:    "segunda-feira",
	time.Tuesday:   "terça-feira",
	time.Wednesday: "quarta-feira",
	time.Thursday:  "quinta-feira",
	time.Friday:    "sexta-feira",
	time.Saturday:  "sábado",
	time.Sunday:    "domingo",
}

// FormatDateBR — дата в формате ДД/ММ/ГГГГ.
func FormatDateBR(date time.Time) string {
	return date.Format("02/01/2006")
}

// FormatClockShort — время в формате ЧЧ:ММ.
func FormatClockShort(d time.Duration) string {
	return time.Time{}.Add(d).Format("15:04")
}

// FormatSlotForPatient форматирует слот в человекочитаемую строку,
// например "segunda-feira, 07/01/2030, 09:00–09:30".
func FormatSlotForPatient(date time.Time, start, end time.Duration) string {
	return fmt.Sprintf("%s, %s, %s–%s",
		ptWeekdays[date.Weekday()],
		FormatDateBR(date),
		FormatClockShort(start),
		FormatClockShort(end),
	)
}
