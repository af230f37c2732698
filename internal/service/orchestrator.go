package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
)

// BookingIntent — неструктурированная заявка на приём из диалога.
type BookingIntent struct {
	Name          string
	BirthDate     string
	Specialty     string
	Reason        string
	PreferredDate string // YYYY-MM-DD
	PreferredTime string // HH:MM или HH:MM:SS
	City          string
}

type BookingDetails struct {
	AppointmentID uint64
	PatientName   string
	BirthDate     string
	Reason        string
	Doctor        string
	Specialty     string // название для пациента
	City          string
	Date          string // ДД/ММ/ГГГГ
	Time          string // ЧЧ:ММ
	Slot          string
	Status        model.AppointmentStatus
}

// BookingResult — итог CompleteBooking; ошибок наружу не бывает.
type BookingResult struct {
	Success  bool
	Protocol string
	Message  string
	Details  *BookingDetails
}

type Orchestrator struct {
	availability *AvailabilityService
	booking      *BookingService
	log          zerolog.Logger
}

func NewOrchestrator(availability *AvailabilityService, booking *BookingService, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		availability: availability,
		booking:      booking,
		log:          log.With().Str("component", "orchestrator").Logger(),
	}
}

// CompleteBooking подбирает слот под заявку и записывает пациента.
// Любая ошибка превращается в результат с Success=false.
func (o *Orchestrator) CompleteBooking(ctx context.Context, userID uint64, in BookingIntent) BookingResult {
	match := LookupSpecialty(in.Specialty)
	if !match.Mapped && in.Specialty != "" {
		o.log.Warn().Str("specialty", in.Specialty).Msg("specialty not recognized, passing through")
	}

	groups, err := o.availability.Query(ctx, AvailabilityFilter{
		Specialty: match.Value,
		City:      strings.TrimSpace(in.City),
	})
	if err != nil {
		o.log.Error().Err(err).Uint64("user_id", userID).Msg("availability query failed")
		return failure("could not check availability, please try again later")
	}

	slot, doctor, date, ok := SelectSlot(groups, in.PreferredDate, in.PreferredTime)
	if !ok {
		return failure("no availability for given criteria")
	}

	appt, err := o.booking.Book(ctx, userID, slot.ID, bookingNotes(in))
	if err != nil {
		o.log.Info().Err(err).Uint64("user_id", userID).Uint64("time_slot_id", slot.ID).Msg("booking failed")
		return failure(Message(err))
	}

	start, _ := calendar.ParseClock(slot.StartTime)
	end, _ := calendar.ParseClock(slot.EndTime)

	details := &BookingDetails{
		AppointmentID: appt.ID,
		PatientName:   in.Name,
		BirthDate:     in.BirthDate,
		Reason:        in.Reason,
		Doctor:        doctor.Name,
		Specialty:     doctor.Specialty.DisplayName(),
		City:          doctor.City,
		Date:          calendar.FormatDateBR(date),
		Time:          calendar.FormatClockShort(start),
		Slot:          calendar.FormatSlotForPatient(date, start, end),
		Status:        appt.Status,
	}

	return BookingResult{
		Success:  true,
		Protocol: appt.Protocol,
		Message:  confirmationMessage(appt.Protocol, details),
		Details:  details,
	}
}

// BookSlot записывает пациента на конкретный слот из диалога.
// Как и CompleteBooking, ошибку возвращает результатом.
func (o *Orchestrator) BookSlot(ctx context.Context, userID, timeSlotID uint64, notes string) BookingResult {
	appt, err := o.booking.Book(ctx, userID, timeSlotID, notes)
	if err != nil {
		o.log.Info().Err(err).Uint64("user_id", userID).Uint64("time_slot_id", timeSlotID).Msg("booking failed")
		return failure("Erro ao agendar consulta: " + Message(err))
	}

	date := time.Time(appt.AppointmentDate)
	start := time.Duration(appt.AppointmentTime)
	details := &BookingDetails{
		AppointmentID: appt.ID,
		Date:          calendar.FormatDateBR(date),
		Time:          calendar.FormatClockShort(start),
		Status:        appt.Status,
	}
	if appt.TimeSlot != nil {
		details.Slot = calendar.FormatSlotForPatient(date, start, time.Duration(appt.TimeSlot.EndTime))
	}
	if d := appt.Doctor; d != nil {
		details.Doctor = d.Name
		details.Specialty = d.Specialty.DisplayName()
		details.City = d.City
	}

	return BookingResult{
		Success:  true,
		Protocol: appt.Protocol,
		Message:  "Consulta agendada com sucesso!",
		Details:  details,
	}
}

// SelectSlot выбирает слот: сначала на желаемую дату (точное время или первый
// слот первого врача), иначе самый ранний слот первого врача первой даты.
func SelectSlot(groups []DateGroup, preferredDate, preferredTime string) (SlotView, model.Doctor, time.Time, bool) {
	if preferredDate != "" {
		if want, err := calendar.ParseDate(preferredDate); err == nil {
			key := want.Format(calendar.DateLayout)
			for _, g := range groups {
				if g.Date != key {
					continue
				}
				for _, d := range g.Doctors {
					if len(d.Slots) == 0 {
						continue
					}
					return pickInDoctor(d, preferredTime), d.Doctor, want, true
				}
			}
		}
	}

	for _, g := range groups {
		for _, d := range g.Doctors {
			if len(d.Slots) == 0 {
				continue
			}
			date, err := calendar.ParseDate(g.Date)
			if err != nil {
				continue
			}
			return d.Slots[0], d.Doctor, date, true
		}
	}
	return SlotView{}, model.Doctor{}, time.Time{}, false
}

func pickInDoctor(d DoctorGroup, preferredTime string) SlotView {
	if preferredTime != "" {
		if want, err := calendar.ParseClock(preferredTime); err == nil {
			for _, s := range d.Slots {
				if got, err := calendar.ParseClock(s.StartTime); err == nil && got == want {
					return s
				}
			}
		}
	}
	return d.Slots[0]
}

func bookingNotes(in BookingIntent) string {
	return fmt.Sprintf("Reason: %s, Patient: %s, Birth date: %s", in.Reason, in.Name, in.BirthDate)
}

func confirmationMessage(protocol string, d *BookingDetails) string {
	var b strings.Builder
	b.WriteString("Agendamento confirmado!\n")
	fmt.Fprintf(&b, "Protocolo: %s\n", protocol)
	fmt.Fprintf(&b, "Paciente: %s\n", d.PatientName)
	fmt.Fprintf(&b, "Data de nascimento: %s\n", d.BirthDate)
	fmt.Fprintf(&b, "Motivo: %s\n", d.Reason)
	fmt.Fprintf(&b, "Médico: %s (%s)\n", d.Doctor, d.Specialty)
	fmt.Fprintf(&b, "Cidade: %s\n", d.City)
	fmt.Fprintf(&b, "Data: %s às %s", d.Date, d.Time)
	return b.String()
}

func failure(msg string) BookingResult {
	return BookingResult{Success: false, Message: msg}
}
