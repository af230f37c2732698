package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

// ScheduleService — администрирование недельных расписаний врачей.
type ScheduleService struct {
	schedules repository.ScheduleRepository
	doctors   repository.DoctorRepository
	log       zerolog.Logger
}

func NewScheduleService(
	schedules repository.ScheduleRepository,
	doctors repository.DoctorRepository,
	log zerolog.Logger,
) *ScheduleService {
	return &ScheduleService{
		schedules: schedules,
		doctors:   doctors,
		log:       log.With().Str("component", "schedules").Logger(),
	}
}

// Create сохраняет правило, если оно корректно и не пересекается
// с другими активными правилами врача в тот же день.
func (s *ScheduleService) Create(ctx context.Context, sch *model.Schedule) error {
	if sch.SlotDuration <= 0 {
		return invalidArgument("slot duration must be positive")
	}
	if sch.MaxAppointments <= 0 {
		sch.MaxAppointments = 1
	}
	if _, ok := sch.DayOfWeek.Weekday(); !ok {
		return invalidArgument("unknown day of week %q", sch.DayOfWeek)
	}
	if sch.StartTime == nil || sch.EndTime == nil {
		return invalidArgument("start and end time are required")
	}
	window, err := clockRange(*sch.StartTime, *sch.EndTime)
	if err != nil {
		return invalidArgument("end time must be after start time")
	}
	if time.Duration(*sch.EndTime) > 24*time.Hour {
		return invalidArgument("end time must be within the day")
	}

	if _, err := s.doctors.GetByID(ctx, sch.DoctorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("doctor %d not found", sch.DoctorID)
		}
		return fmt.Errorf("load doctor %d: %w", sch.DoctorID, err)
	}

	existing, err := s.schedules.ListActiveByDoctorDay(ctx, sch.DoctorID, sch.DayOfWeek)
	if err != nil {
		return fmt.Errorf("list schedules of doctor %d: %w", sch.DoctorID, err)
	}
	ranges := make([]calendar.TimeRange, 0, len(existing))
	for _, e := range existing {
		if e.StartTime == nil || e.EndTime == nil {
			continue
		}
		if r, err := clockRange(*e.StartTime, *e.EndTime); err == nil {
			ranges = append(ranges, r)
		}
	}
	if ok, _ := calendar.HasOverlap(window, ranges); ok {
		return conflict("schedule overlaps an existing schedule on %s", sch.DayOfWeek)
	}

	sch.IsActive = true
	if err := s.schedules.Create(ctx, sch); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}

	s.log.Info().Uint64("schedule_id", sch.ID).Uint64("doctor_id", sch.DoctorID).Str("day", string(sch.DayOfWeek)).Msg("schedule created")
	return nil
}

// Deactivate выключает правило; уже созданные слоты остаются в базе.
func (s *ScheduleService) Deactivate(ctx context.Context, id uint64) error {
	if err := s.schedules.Deactivate(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("schedule %d not found", id)
		}
		return fmt.Errorf("deactivate schedule %d: %w", id, err)
	}
	s.log.Info().Uint64("schedule_id", id).Msg("schedule deactivated")
	return nil
}

func (s *ScheduleService) ListByDoctor(ctx context.Context, doctorID uint64) ([]model.Schedule, error) {
	schedules, err := s.schedules.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list schedules of doctor %d: %w", doctorID, err)
	}
	return schedules, nil
}

// clockRange кладёт настенное время на условную дату, чтобы сравнивать интервалы.
func clockRange(start, end datatypes.Time) (calendar.TimeRange, error) {
	base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	return calendar.NewTimeRange(base.Add(time.Duration(start)), base.Add(time.Duration(end)))
}
