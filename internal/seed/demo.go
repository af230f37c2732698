// Package seed заполняет пустую базу демонстрационными врачами и расписаниями.
package seed

import (
	"context"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

type demoSchedule struct {
	day        model.DayOfWeek
	start, end string
	max        int
}

type demoDoctor struct {
	doctor    model.Doctor
	schedules []demoSchedule
}

var demoDoctors = []demoDoctor{
	{
		doctor: model.Doctor{Name: "Dr. Carlos Silva", Specialty: model.SpecialtyCardiology, City: "São Paulo", Phone: "(11) 9999-8888", Email: "carlos.silva@clinica.com", Bio: "Cardiologista com 15 anos de experiência"},
		schedules: []demoSchedule{
			{model.Monday, "08:00", "12:00", 8},
			{model.Wednesday, "14:00", "18:00", 8},
			{model.Friday, "09:00", "13:00", 8},
		},
	},
	{
		doctor: model.Doctor{Name: "Dra. Maria Santos", Specialty: model.SpecialtyDermatology, City: "Rio de Janeiro", Phone: "(21) 7777-6666", Email: "maria.santos@clinica.com", Bio: "Dermatologista especializada em estética"},
		schedules: []demoSchedule{
			{model.Tuesday, "09:00", "17:00", 16},
			{model.Thursday, "09:00", "17:00", 16},
		},
	},
	{
		doctor: model.Doctor{Name: "Dr. João Oliveira", Specialty: model.SpecialtyOrthopedics, City: "Belo Horizonte", Phone: "(31) 5555-4444", Email: "joao.oliveira@clinica.com", Bio: "Ortopedista traumatologista"},
		schedules: []demoSchedule{
			{model.Monday, "07:00", "11:00", 8},
			{model.Wednesday, "07:00", "11:00", 8},
			{model.Friday, "07:00", "11:00", 8},
		},
	},
	{
		doctor: model.Doctor{Name: "Dra. Ana Costa", Specialty: model.SpecialtyPediatrics, City: "São Paulo", Phone: "(11) 3333-2222", Email: "ana.costa@clinica.com", Bio: "Pediatra com especialização em neonatologia"},
		schedules: []demoSchedule{
			{model.Tuesday, "13:00", "17:00", 8},
			{model.Thursday, "13:00", "17:00", 8},
			{model.Saturday, "08:00", "12:00", 8},
		},
	},
	{
		doctor: model.Doctor{Name: "Dr. Pedro Rocha", Specialty: model.SpecialtyNeurology, City: "Porto Alegre", Phone: "(51) 1111-0000", Email: "pedro.rocha@clinica.com", Bio: "Neurologista com foco em dores de cabeça"},
		schedules: []demoSchedule{
			{model.Monday, "10:00", "16:00", 12},
			{model.Tuesday, "10:00", "16:00", 12},
			{model.Wednesday, "10:00", "16:00", 12},
		},
	},
}

// Result: сколько записей создано.
type Result struct {
	Doctors   int
	Schedules int
}

// Demo загружает врачей и их расписания (30-минутные слоты).
// Если врачи уже есть, ничего не делает.
func Demo(ctx context.Context, db *gorm.DB) (Result, error) {
	var res Result

	n, err := repository.NewGormDoctorRepository(db).Count(ctx)
	if err != nil {
		return res, fmt.Errorf("count doctors: %w", err)
	}
	if n > 0 {
		return res, nil
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doctors := repository.NewGormDoctorRepository(tx)
		schedules := repository.NewGormScheduleRepository(tx)

		for _, dd := range demoDoctors {
			d := dd.doctor
			d.IsActive = true
			if err := doctors.Create(ctx, &d); err != nil {
				return fmt.Errorf("create doctor %q: %w", d.Name, err)
			}
			res.Doctors++

			for _, ds := range dd.schedules {
				start, err := clock(ds.start)
				if err != nil {
					return err
				}
				end, err := clock(ds.end)
				if err != nil {
					return err
				}
				s := &model.Schedule{
					DoctorID:        d.ID,
					DayOfWeek:       ds.day,
					StartTime:       &start,
					EndTime:         &end,
					SlotDuration:    30,
					MaxAppointments: ds.max,
					IsActive:        true,
				}
				if err := schedules.Create(ctx, s); err != nil {
					return fmt.Errorf("create schedule for %q: %w", d.Name, err)
				}
				res.Schedules++
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func clock(s string) (datatypes.Time, error) {
	d, err := calendar.ParseClock(s)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return datatypes.Time(d), nil
}
