package httpapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/service"
)

func (h *handler) generateSlots(c echo.Context) error {
	horizon, err := intQuery(c, "horizonDays")
	if err != nil {
		return err
	}
	if horizon < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "horizonDays must not be negative")
	}

	res, err := h.Generator.Generate(c.Request().Context(), horizon)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, envelope{
		Success: true,
		Message: fmt.Sprintf("%d horários criados", res.Created),
		Data:    res,
	})
}

func (h *handler) createSchedule(c echo.Context) error {
	var req createScheduleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	start, err := calendar.ParseClock(req.StartTime)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "startTime must be HH:MM")
	}
	end, err := calendar.ParseClock(req.EndTime)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "endTime must be HH:MM")
	}
	startTime, endTime := datatypes.Time(start), datatypes.Time(end)

	sch := &model.Schedule{
		DoctorID:        req.DoctorID,
		DayOfWeek:       model.DayOfWeek(req.DayOfWeek),
		StartTime:       &startTime,
		EndTime:         &endTime,
		SlotDuration:    req.SlotDuration,
		MaxAppointments: req.MaxAppointments,
	}
	if err := h.Schedules.Create(c.Request().Context(), sch); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, envelope{Success: true, Data: toScheduleDTO(*sch)})
}

func (h *handler) deactivateSchedule(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.Schedules.Deactivate(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, envelope{Success: true, Message: "schedule deactivated"})
}

func (h *handler) doctorSchedules(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	schedules, err := h.Schedules.ListByDoctor(c.Request().Context(), id)
	if err != nil {
		return err
	}
	out := make([]scheduleDTO, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, toScheduleDTO(s))
	}
	return c.JSON(http.StatusOK, envelope{Success: true, Data: out, Total: total(len(out))})
}

func (h *handler) registerUser(c echo.Context) error {
	var req registerUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	u, err := h.Users.Register(c.Request().Context(), service.RegisterUserInput{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		BirthDate: req.BirthDate,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, envelope{Success: true, Data: toUserDTO(*u)})
}
