package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/service"
)

func (h *handler) queryAvailability(c echo.Context) error {
	f := service.AvailabilityFilter{
		Specialty: specialtyParam(c.QueryParam("specialty")),
		City:      c.QueryParam("city"),
	}
	for name, dst := range map[string]**time.Time{"startDate": &f.StartDate, "endDate": &f.EndDate} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		d, err := calendar.ParseDate(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s must be YYYY-MM-DD", name))
		}
		*dst = &d
	}

	groups, err := h.Availability.Query(c.Request().Context(), f)
	if err != nil {
		return err
	}
	msg := "Nenhum horário disponível para os critérios informados"
	if len(groups) > 0 {
		msg = fmt.Sprintf("Encontrados %d dias com horários disponíveis", len(groups))
	}
	return c.JSON(http.StatusOK, envelope{
		Success: true,
		Message: msg,
		Data:    toDateGroupDTOs(groups),
		Total:   total(service.TotalSlots(groups)),
	})
}

func (h *handler) allAvailability(c echo.Context) error {
	groups, err := h.Availability.All(c.Request().Context())
	if err != nil {
		return err
	}
	n := service.TotalSlots(groups)
	return c.JSON(http.StatusOK, envelope{
		Success: true,
		Message: fmt.Sprintf("Encontrados %d horários disponíveis em %d dias", n, len(groups)),
		Data:    toDateGroupDTOs(groups),
		Total:   total(n),
	})
}

func (h *handler) availabilityByCity(c echo.Context) error {
	city := c.Param("city")
	groups, err := h.Availability.ByCity(c.Request().Context(), city)
	if err != nil {
		return err
	}
	msg := "Nenhum horário disponível em " + city
	if len(groups) > 0 {
		msg = fmt.Sprintf("Encontrados %d dias com horários disponíveis em %s", len(groups), city)
	}
	return c.JSON(http.StatusOK, envelope{
		Success: true,
		Message: msg,
		Data:    toDateGroupDTOs(groups),
		Total:   total(service.TotalSlots(groups)),
	})
}

func (h *handler) availabilityBySpecialtyAndCity(c echo.Context) error {
	specialty := specialtyParam(c.Param("specialty"))
	city := c.Param("city")
	groups, err := h.Availability.BySpecialtyAndCity(c.Request().Context(), specialty, city)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("Nenhum horário disponível para %s em %s", specialty.DisplayName(), city)
	if len(groups) > 0 {
		msg = fmt.Sprintf("Encontrados %d dias com horários de %s em %s", len(groups), specialty.DisplayName(), city)
	}
	return c.JSON(http.StatusOK, envelope{
		Success: true,
		Message: msg,
		Data:    toDateGroupDTOs(groups),
		Total:   total(service.TotalSlots(groups)),
	})
}

func (h *handler) cities(c echo.Context) error {
	cities, err := h.Availability.Cities(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, envelope{
		Success: true,
		Message: fmt.Sprintf("Encontradas %d cidades com médicos disponíveis", len(cities)),
		Data:    cities,
		Total:   total(len(cities)),
	})
}

func (h *handler) stats(c echo.Context) error {
	st, err := h.Availability.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, envelope{
		Success: true,
		Data: statsDTO{
			TotalAvailableSlots: st.TotalAvailableSlots,
			ByCity:              toCountDTOs(st.ByCity),
			BySpecialty:         toCountDTOs(st.BySpecialty),
			LastUpdated:         st.LastUpdated,
		},
	})
}

func (h *handler) doctors(c echo.Context) error {
	doctors, err := h.Availability.Doctors(c.Request().Context(), specialtyParam(c.QueryParam("specialty")), c.QueryParam("city"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, envelope{
		Success: true,
		Message: fmt.Sprintf("Encontrados %d médicos", len(doctors)),
		Data:    toDoctorDTOs(doctors),
		Total:   total(len(doctors)),
	})
}

func (h *handler) specialties(c echo.Context) error {
	specialties := h.Availability.Specialties()
	type item struct {
		Value string `json:"value"`
		Name  string `json:"name"`
	}
	out := make([]item, 0, len(specialties))
	for _, s := range specialties {
		out = append(out, item{Value: string(s), Name: s.DisplayName()})
	}
	return c.JSON(http.StatusOK, envelope{Success: true, Data: out, Total: total(len(out))})
}

func (h *handler) book(c echo.Context) error {
	var req bookRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	appt, err := h.Booking.Book(c.Request().Context(), currentUserID(c), req.TimeSlotID, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, envelope{
		Success: true,
		Message: "Consulta agendada com sucesso",
		Data:    toAppointmentDTO(*appt),
	})
}

func (h *handler) completeBooking(c echo.Context) error {
	var req completeBookingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res := h.Orchestrator.CompleteBooking(c.Request().Context(), currentUserID(c), service.BookingIntent{
		Name:          req.Name,
		BirthDate:     req.BirthDate,
		Specialty:     req.Specialty,
		Reason:        req.Reason,
		PreferredDate: req.PreferredDate,
		PreferredTime: req.PreferredTime,
		City:          req.City,
	})

	status := http.StatusCreated
	if !res.Success {
		status = http.StatusOK
	}
	return c.JSON(status, envelope{
		Success: res.Success,
		Message: res.Message,
		Data:    toBookingResultDTO(res),
	})
}

// chatSchedule записывает на выбранный в диалоге слот; отказ приходит результатом.
func (h *handler) chatSchedule(c echo.Context) error {
	var req chatScheduleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res := h.Orchestrator.BookSlot(c.Request().Context(), currentUserID(c), req.TimeSlotID, req.UserNotes)
	if !res.Success {
		return c.JSON(http.StatusOK, envelope{Success: false, Message: res.Message})
	}
	return c.JSON(http.StatusCreated, envelope{
		Success: true,
		Message: res.Message,
		Data:    toBookingResultDTO(res),
	})
}

func (h *handler) myAppointments(c echo.Context) error {
	page, err := intQuery(c, "page")
	if err != nil {
		return err
	}
	pageSize, err := intQuery(c, "pageSize")
	if err != nil {
		return err
	}

	appts, err := h.Booking.GetUserAppointments(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}

	p := calendar.Paginate(appts, page, pageSize)
	items := make([]appointmentDTO, 0, len(p.Items))
	for _, a := range p.Items {
		items = append(items, toAppointmentDTO(a))
	}
	return c.JSON(http.StatusOK, envelope{
		Success: true,
		Data:    items,
		Total:   total(p.Total),
		Page:    &pageMeta{Page: p.Page, PageSize: p.PageSize, HasNext: p.HasNext, HasPrev: p.HasPrev},
	})
}

func (h *handler) appointmentDetails(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	appt, err := h.Booking.GetAppointmentDetails(c.Request().Context(), currentUserID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, envelope{Success: true, Data: toAppointmentDTO(*appt)})
}

func (h *handler) cancel(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req cancelRequest
	// тело необязательно
	if c.Request().ContentLength > 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
	}

	appt, err := h.Booking.Cancel(c.Request().Context(), currentUserID(c), id, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, envelope{
		Success: true,
		Message: "Agendamento cancelado com sucesso",
		Data:    toAppointmentDTO(*appt),
	})
}

func (h *handler) me(c echo.Context) error {
	u, err := h.Users.Get(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, envelope{Success: true, Data: toUserDTO(*u)})
}

// specialtyParam принимает и код, и название на португальском/английском.
func specialtyParam(raw string) model.Specialty {
	if raw == "" {
		return ""
	}
	return service.LookupSpecialty(raw).Value
}

func idParam(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id must be a positive integer")
	}
	return id, nil
}

func intQuery(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be an integer")
	}
	return n, nil
}
