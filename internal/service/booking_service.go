package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

// Отменить запись можно не позже чем за сутки до приёма.
const CancellationLeadTime = 24 * time.Hour

var tracer = otel.Tracer("github.com/Leganyst/clinic-scheduling/internal/service")

// BookingService — запись на приём и отмена записи.
type BookingService struct {
	db           *gorm.DB
	slots        repository.SlotRepository
	appointments repository.AppointmentRepository
	users        repository.UserRepository
	events       repository.EventRepository

	clock       Clock
	newProtocol func(time.Time) string
	log         zerolog.Logger
}

func NewBookingService(
	db *gorm.DB,
	slots repository.SlotRepository,
	appointments repository.AppointmentRepository,
	users repository.UserRepository,
	events repository.EventRepository,
	clock Clock,
	log zerolog.Logger,
) *BookingService {
	return &BookingService{
		db:           db,
		slots:        slots,
		appointments: appointments,
		users:        users,
		events:       events,
		clock:        clock,
		newProtocol:  NewProtocol,
		log:          log.With().Str("component", "booking").Logger(),
	}
}

// Book занимает слот за пациентом. Проверки идут строго по порядку:
// слот существует, свободен, не в прошлом, пациент существует, врач на месте.
// Слот и запись меняются в одной транзакции.
func (s *BookingService) Book(ctx context.Context, userID, timeSlotID uint64, notes string) (*model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "BookingService.Book")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("time_slot.id", int64(timeSlotID)),
	)

	var appt *model.Appointment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slots := s.slots.WithTx(tx)

		slot, err := slots.GetByID(ctx, timeSlotID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("time slot %d not found", timeSlotID)
		}
		if err != nil {
			return fmt.Errorf("load time slot %d: %w", timeSlotID, err)
		}
		if !slot.IsAvailable {
			return conflict("time slot is no longer available")
		}
		if time.Time(slot.Date).Before(s.clock.Today()) {
			return conflict("cannot book past dates")
		}

		if _, err := calendar.ValidateUser(ctx, s.users.WithTx(tx), userID); err != nil {
			if errors.Is(err, calendar.ErrUserNotFound) || errors.Is(err, calendar.ErrUserInactive) || errors.Is(err, calendar.ErrInvalidUserID) {
				return notFound("user %d not found", userID)
			}
			return err
		}

		doctor := slotDoctor(*slot)
		// выключенное расписание не мешает: слот уже создан
		if doctor == nil || !doctor.IsActive {
			return notFound("doctor information not found for time slot %d", timeSlotID)
		}

		booked, err := slots.MarkBooked(ctx, slot.ID)
		if err != nil {
			return fmt.Errorf("mark slot %d booked: %w", slot.ID, err)
		}
		if !booked {
			return conflict("time slot is no longer available")
		}

		appt = &model.Appointment{
			UserID:          userID,
			DoctorID:        doctor.ID,
			TimeSlotID:      slot.ID,
			AppointmentDate: slot.Date,
			AppointmentTime: slot.StartTime,
			Status:          model.AppointmentStatusScheduled,
			Notes:           notes,
		}
		if err := s.createWithProtocol(ctx, tx, appt); err != nil {
			return err
		}
		appt.Doctor = doctor
		appt.TimeSlot = slot
		appt.TimeSlot.IsAvailable = false

		return s.recordEvent(ctx, tx, model.EventTypeAppointmentBooked, appt, map[string]any{
			"protocol":   appt.Protocol,
			"doctorId":   appt.DoctorID,
			"timeSlotId": appt.TimeSlotID,
			"date":       time.Time(appt.AppointmentDate).Format(calendar.DateLayout),
			"time":       appt.AppointmentTime.String(),
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.log.Info().
		Uint64("appointment_id", appt.ID).
		Uint64("user_id", userID).
		Uint64("time_slot_id", timeSlotID).
		Str("protocol", appt.Protocol).
		Msg("appointment booked")

	return appt, nil
}

// createWithProtocol вставляет запись, перегенерируя номер протокола при коллизии.
// Каждая попытка идёт в savepoint, чтобы ошибка не ломала внешнюю транзакцию Postgres.
func (s *BookingService) createWithProtocol(ctx context.Context, tx *gorm.DB, appt *model.Appointment) error {
	appts := s.appointments.WithTx(tx)

	for attempt := 1; attempt <= protocolMaxAttempts; attempt++ {
		appt.ID = 0
		appt.Protocol = s.newProtocol(s.clock.Now())

		err := tx.Transaction(func(sp *gorm.DB) error {
			return appts.WithTx(sp).Create(ctx, appt)
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("create appointment: %w", err)
		}

		taken, lookupErr := s.protocolTaken(ctx, tx, appt.Protocol)
		if lookupErr != nil {
			return fmt.Errorf("create appointment: %w", lookupErr)
		}
		if !taken {
			// дубль по слоту: активная запись уже есть
			return conflict("time slot is no longer available")
		}
		s.log.Warn().Str("protocol", appt.Protocol).Int("attempt", attempt).Msg("protocol collision, regenerating")
	}

	return fmt.Errorf("create appointment: protocol collision after %d attempts", protocolMaxAttempts)
}

func (s *BookingService) protocolTaken(ctx context.Context, tx *gorm.DB, protocol string) (bool, error) {
	var n int64
	err := tx.WithContext(ctx).Model(&model.Appointment{}).Where("protocol = ?", protocol).Count(&n).Error
	return n > 0, err
}

// Cancel отменяет запись владельца не позже чем за 24 часа до приёма
// и возвращает слот в пул свободных.
func (s *BookingService) Cancel(ctx context.Context, userID, appointmentID uint64, reason string) (*model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "BookingService.Cancel")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("appointment.id", int64(appointmentID)),
	)

	now := s.clock.Now()

	var appt *model.Appointment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appts := s.appointments.WithTx(tx)

		a, err := appts.GetForUpdate(ctx, appointmentID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("appointment %d not found", appointmentID)
		}
		if err != nil {
			return fmt.Errorf("load appointment %d: %w", appointmentID, err)
		}
		if a.UserID != userID {
			return forbidden("you can only cancel your own appointments")
		}
		if !a.Status.Active() {
			return conflict("appointment is already cancelled")
		}
		if a.Status != model.AppointmentStatusScheduled && a.Status != model.AppointmentStatusConfirmed {
			return conflict("appointment in status %s cannot be cancelled", a.Status)
		}

		start := calendar.At(time.Time(a.AppointmentDate), time.Duration(a.AppointmentTime), s.clock.Location())
		if start.Sub(now) <= CancellationLeadTime {
			return conflict("appointments can only be cancelled more than 24 hours in advance")
		}

		cancelled, err := appts.MarkCancelled(ctx, a.ID, reason, now.UTC())
		if err != nil {
			return fmt.Errorf("cancel appointment %d: %w", a.ID, err)
		}
		if !cancelled {
			return conflict("appointment is already cancelled")
		}
		if err := s.slots.WithTx(tx).Release(ctx, a.TimeSlotID); err != nil {
			return fmt.Errorf("release time slot %d: %w", a.TimeSlotID, err)
		}

		if err := s.recordEvent(ctx, tx, model.EventTypeAppointmentCancelled, a, map[string]any{
			"protocol":   a.Protocol,
			"timeSlotId": a.TimeSlotID,
			"reason":     reason,
		}); err != nil {
			return err
		}

		appt, err = appts.GetByID(ctx, a.ID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.log.Info().
		Uint64("appointment_id", appt.ID).
		Uint64("user_id", userID).
		Uint64("time_slot_id", appt.TimeSlotID).
		Msg("appointment cancelled")

	return appt, nil
}

// GetUserAppointments отдаёт записи пациента по дате и времени приёма.
func (s *BookingService) GetUserAppointments(ctx context.Context, userID uint64) ([]model.Appointment, error) {
	appts, err := s.appointments.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list appointments of user %d: %w", userID, err)
	}
	if appts == nil {
		appts = []model.Appointment{}
	}
	return appts, nil
}

// GetAppointmentDetails отдаёт запись только её владельцу.
func (s *BookingService) GetAppointmentDetails(ctx context.Context, userID, appointmentID uint64) (*model.Appointment, error) {
	a, err := s.appointments.GetByID(ctx, appointmentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("appointment %d not found", appointmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("load appointment %d: %w", appointmentID, err)
	}
	if a.UserID != userID {
		return nil, forbidden("you can only view your own appointments")
	}
	return a, nil
}

func (s *BookingService) recordEvent(ctx context.Context, tx *gorm.DB, typ model.EventType, a *model.Appointment, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", typ, err)
	}
	userID, apptID := a.UserID, a.ID
	err = s.events.WithTx(tx).Create(ctx, &model.Event{
		EventType:     typ,
		AggregateID:   strconv.FormatUint(a.ID, 10),
		UserID:        &userID,
		AppointmentID: &apptID,
		Payload:       datatypes.JSON(body),
	})
	if err != nil {
		return fmt.Errorf("record %s event: %w", typ, err)
	}
	return nil
}
