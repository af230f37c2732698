package httpapi

import (
	"time"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/service"
)

type slotDTO struct {
	ID        uint64 `json:"id"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type doctorDTO struct {
	ID            uint64 `json:"id"`
	Name          string `json:"name"`
	Specialty     string `json:"specialty"`
	SpecialtyName string `json:"specialtyName"`
	City          string `json:"city"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	Bio           string `json:"bio,omitempty"`
}

type doctorSlotsDTO struct {
	Doctor doctorDTO `json:"doctor"`
	Slots  []slotDTO `json:"slots"`
}

type dateGroupDTO struct {
	Date    string           `json:"date"`
	Doctors []doctorSlotsDTO `json:"doctors"`
}

type countDTO struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type statsDTO struct {
	TotalAvailableSlots int        `json:"totalAvailableSlots"`
	ByCity              []countDTO `json:"byCity"`
	BySpecialty         []countDTO `json:"bySpecialty"`
	LastUpdated         time.Time  `json:"lastUpdated"`
}

type appointmentDTO struct {
	ID                 uint64     `json:"id"`
	Protocol           string     `json:"protocol"`
	Date               string     `json:"date"`
	Time               string     `json:"time"`
	Status             string     `json:"status"`
	Notes              string     `json:"notes,omitempty"`
	CancellationReason string     `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	Doctor             *doctorDTO `json:"doctor,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

type bookingResultDTO struct {
	Protocol string             `json:"protocol,omitempty"`
	Details  *bookingDetailsDTO `json:"details,omitempty"`
}

type bookingDetailsDTO struct {
	AppointmentID uint64 `json:"appointmentId"`
	PatientName   string `json:"patientName"`
	BirthDate     string `json:"birthDate,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Doctor        string `json:"doctor"`
	Specialty     string `json:"specialty"`
	City          string `json:"city"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Slot          string `json:"slot"`
	Status        string `json:"status"`
}

type scheduleDTO struct {
	ID              uint64 `json:"id"`
	DoctorID        uint64 `json:"doctorId"`
	DayOfWeek       string `json:"dayOfWeek"`
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	SlotDuration    int    `json:"slotDuration"`
	MaxAppointments int    `json:"maxAppointments"`
	IsActive        bool   `json:"isActive"`
}

type userDTO struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	BirthDate string `json:"birthDate,omitempty"`
}

// запросы

type bookRequest struct {
	TimeSlotID uint64 `json:"timeSlotId" validate:"required"`
	Notes      string `json:"notes" validate:"max=1000"`
}

type chatScheduleRequest struct {
	TimeSlotID uint64 `json:"timeSlotId" validate:"required"`
	UserNotes  string `json:"userNotes" validate:"max=1000"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type completeBookingRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	BirthDate     string `json:"birthDate"`
	Specialty     string `json:"specialty" validate:"required"`
	Reason        string `json:"reason" validate:"max=500"`
	PreferredDate string `json:"preferredDate" validate:"omitempty,datetime=2006-01-02"`
	PreferredTime string `json:"preferredTime"`
	City          string `json:"city"`
}

type createScheduleRequest struct {
	DoctorID        uint64 `json:"doctorId" validate:"required"`
	DayOfWeek       string `json:"dayOfWeek" validate:"required"`
	StartTime       string `json:"startTime" validate:"required"`
	EndTime         string `json:"endTime" validate:"required"`
	SlotDuration    int    `json:"slotDuration" validate:"required,min=1,max=480"`
	MaxAppointments int    `json:"maxAppointments" validate:"omitempty,min=1"`
}

type registerUserRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	BirthDate string `json:"birthDate"`
}

func toDoctorDTO(d model.Doctor) doctorDTO {
	return doctorDTO{
		ID:            d.ID,
		Name:          d.Name,
		Specialty:     string(d.Specialty),
		SpecialtyName: d.Specialty.DisplayName(),
		City:          d.City,
		Phone:         d.Phone,
		Email:         d.Email,
		Bio:           d.Bio,
	}
}

func toDoctorDTOs(doctors []model.Doctor) []doctorDTO {
	out := make([]doctorDTO, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, toDoctorDTO(d))
	}
	return out
}

func toDateGroupDTOs(groups []service.DateGroup) []dateGroupDTO {
	out := make([]dateGroupDTO, 0, len(groups))
	for _, g := range groups {
		dg := dateGroupDTO{Date: g.Date, Doctors: make([]doctorSlotsDTO, 0, len(g.Doctors))}
		for _, d := range g.Doctors {
			ds := doctorSlotsDTO{Doctor: toDoctorDTO(d.Doctor), Slots: make([]slotDTO, 0, len(d.Slots))}
			for _, s := range d.Slots {
				ds.Slots = append(ds.Slots, slotDTO{ID: s.ID, StartTime: s.StartTime, EndTime: s.EndTime})
			}
			dg.Doctors = append(dg.Doctors, ds)
		}
		out = append(out, dg)
	}
	return out
}

func toCountDTOs(counts []service.CountByKey) []countDTO {
	out := make([]countDTO, 0, len(counts))
	for _, c := range counts {
		out = append(out, countDTO{Key: c.Key, Count: c.Count})
	}
	return out
}

func toAppointmentDTO(a model.Appointment) appointmentDTO {
	dto := appointmentDTO{
		ID:                 a.ID,
		Protocol:           a.Protocol,
		Date:               time.Time(a.AppointmentDate).Format(calendar.DateLayout),
		Time:               a.AppointmentTime.String(),
		Status:             string(a.Status),
		Notes:              a.Notes,
		CancellationReason: a.CancellationReason,
		CancelledAt:        a.CancelledAt,
		CreatedAt:          a.CreatedAt,
	}
	if a.Doctor != nil {
		d := toDoctorDTO(*a.Doctor)
		dto.Doctor = &d
	}
	return dto
}

func toScheduleDTO(s model.Schedule) scheduleDTO {
	dto := scheduleDTO{
		ID:              s.ID,
		DoctorID:        s.DoctorID,
		DayOfWeek:       string(s.DayOfWeek),
		SlotDuration:    s.SlotDuration,
		MaxAppointments: s.MaxAppointments,
		IsActive:        s.IsActive,
	}
	if s.StartTime != nil {
		dto.StartTime = s.StartTime.String()
	}
	if s.EndTime != nil {
		dto.EndTime = s.EndTime.String()
	}
	return dto
}

func toUserDTO(u model.User) userDTO {
	dto := userDTO{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
	if u.BirthDate != nil {
		dto.BirthDate = time.Time(*u.BirthDate).Format(calendar.DateLayout)
	}
	return dto
}

func toBookingResultDTO(r service.BookingResult) bookingResultDTO {
	out := bookingResultDTO{Protocol: r.Protocol}
	if d := r.Details; d != nil {
		out.Details = &bookingDetailsDTO{
			AppointmentID: d.AppointmentID,
			PatientName:   d.PatientName,
			BirthDate:     d.BirthDate,
			Reason:        d.Reason,
			Doctor:        d.Doctor,
			Specialty:     d.Specialty,
			City:          d.City,
			Date:          d.Date,
			Time:          d.Time,
			Slot:          d.Slot,
			Status:        string(d.Status),
		}
	}
	return out
}
