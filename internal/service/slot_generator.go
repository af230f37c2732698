package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

const DefaultHorizonDays = 30

var ErrMalformedSchedule = errors.New("malformed schedule")

// GenerateResult — итог одного прогона генерации.
type GenerateResult struct {
	Schedules  int `json:"schedules"`
	Skipped    int `json:"skipped"`
	Created    int `json:"created"`
	Duplicates int `json:"duplicates"`
}

// SlotGenerator материализует недельные расписания в конкретные слоты.
type SlotGenerator struct {
	schedules repository.ScheduleRepository
	slots     repository.SlotRepository
	events    repository.EventRepository

	clock          Clock
	defaultHorizon int
	log            zerolog.Logger
}

func NewSlotGenerator(
	schedules repository.ScheduleRepository,
	slots repository.SlotRepository,
	events repository.EventRepository,
	clock Clock,
	defaultHorizon int,
	log zerolog.Logger,
) *SlotGenerator {
	if defaultHorizon <= 0 {
		defaultHorizon = DefaultHorizonDays
	}
	return &SlotGenerator{
		schedules:      schedules,
		slots:          slots,
		events:         events,
		clock:          clock,
		defaultHorizon: defaultHorizon,
		log:            log.With().Str("component", "slot_generator").Logger(),
	}
}

// Generate создаёт слоты на horizonDays дней начиная с сегодняшнего.
// Повторный запуск ничего не дублирует; битые расписания пропускаются.
func (g *SlotGenerator) Generate(ctx context.Context, horizonDays int) (GenerateResult, error) {
	if horizonDays <= 0 {
		horizonDays = g.defaultHorizon
	}

	ctx, span := tracer.Start(ctx, "SlotGenerator.Generate",
		trace.WithAttributes(attribute.Int("horizon_days", horizonDays)))
	defer span.End()

	schedules, err := g.schedules.ListActive(ctx)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("list active schedules: %w", err)
	}

	today := g.clock.Today()
	res := GenerateResult{Schedules: len(schedules)}

	for _, s := range schedules {
		planned, err := PlanSlots(s, today, horizonDays)
		if err != nil {
			res.Skipped++
			g.log.Warn().Err(err).Uint64("schedule_id", s.ID).Msg("skipping schedule")
			continue
		}

		created, err := g.slots.CreateBatch(ctx, planned)
		if err != nil {
			return res, fmt.Errorf("insert slots for schedule %d: %w", s.ID, err)
		}
		res.Created += int(created)
		res.Duplicates += len(planned) - int(created)
	}

	if err := g.recordRun(ctx, today, horizonDays, res); err != nil {
		g.log.Error().Err(err).Msg("record generation event")
	}

	span.SetAttributes(attribute.Int("slots.created", res.Created))
	g.log.Info().
		Int("schedules", res.Schedules).
		Int("skipped", res.Skipped).
		Int("created", res.Created).
		Int("duplicates", res.Duplicates).
		Int("horizon_days", horizonDays).
		Msg("slot generation finished")

	return res, nil
}

func (g *SlotGenerator) recordRun(ctx context.Context, today time.Time, horizonDays int, res GenerateResult) error {
	payload, err := json.Marshal(map[string]any{
		"from":        today.Format(calendar.DateLayout),
		"horizonDays": horizonDays,
		"result":      res,
	})
	if err != nil {
		return err
	}
	return g.events.Create(ctx, &model.Event{
		EventType:   model.EventTypeSlotsGenerated,
		AggregateID: today.Format(calendar.DateLayout),
		Payload:     datatypes.JSON(payload),
	})
}

// PlanSlots раскладывает одно расписание на слоты в окне [from, from+days).
func PlanSlots(s model.Schedule, from time.Time, days int) ([]model.TimeSlot, error) {
	rule, err := weeklyRule(s)
	if err != nil {
		return nil, err
	}

	windows, err := calendar.ExpandWeekly(rule, from, days)
	if err != nil {
		return nil, fmt.Errorf("%w: schedule %d: %v", ErrMalformedSchedule, s.ID, err)
	}

	step := time.Duration(s.SlotDuration) * time.Minute
	var slots []model.TimeSlot
	for _, w := range windows {
		day := calendar.CivilDate(w.Start)
		chunks, err := calendar.SplitWindow(w, step)
		if err != nil {
			return nil, fmt.Errorf("%w: schedule %d: %v", ErrMalformedSchedule, s.ID, err)
		}
		for _, c := range chunks {
			slots = append(slots, model.TimeSlot{
				ScheduleID:  s.ID,
				Date:        datatypes.Date(day),
				StartTime:   datatypes.Time(c.Start.Sub(day)),
				EndTime:     datatypes.Time(c.End.Sub(day)),
				IsAvailable: true,
			})
		}
	}
	return slots, nil
}

func weeklyRule(s model.Schedule) (calendar.WeeklyRule, error) {
	bad := func(reason string) (calendar.WeeklyRule, error) {
		return calendar.WeeklyRule{}, fmt.Errorf("%w: schedule %d: %s", ErrMalformedSchedule, s.ID, reason)
	}

	if s.SlotDuration <= 0 {
		return bad("slot duration must be positive, got " + strconv.Itoa(s.SlotDuration))
	}
	weekday, ok := s.DayOfWeek.Weekday()
	if !ok {
		return bad(fmt.Sprintf("unknown day of week %q", s.DayOfWeek))
	}
	if s.StartTime == nil || s.EndTime == nil {
		return bad("missing start or end time")
	}
	start, end := time.Duration(*s.StartTime), time.Duration(*s.EndTime)
	if end <= start {
		return bad("end time must be after start time")
	}

	return calendar.WeeklyRule{Weekday: weekday, Start: start, End: end}, nil
}
