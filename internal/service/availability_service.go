package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

// Пустые поля фильтра не ограничивают выборку.
type AvailabilityFilter struct {
	Specialty model.Specialty
	City      string
	StartDate *time.Time
	EndDate   *time.Time
}

type SlotView struct {
	ID        uint64
	StartTime string // HH:MM:SS
	EndTime   string
}

// DoctorGroup — слоты одного врача на одну дату.
type DoctorGroup struct {
	Doctor model.Doctor
	Slots  []SlotView
}

// DateGroup — все врачи со свободными слотами на дату YYYY-MM-DD.
type DateGroup struct {
	Date    string
	Doctors []DoctorGroup
}

type CountByKey struct {
	Key   string
	Count int
}

type AvailabilityStats struct {
	TotalAvailableSlots int
	ByCity              []CountByKey
	BySpecialty         []CountByKey
	LastUpdated         time.Time
}

type AvailabilityService struct {
	slots   repository.SlotRepository
	doctors repository.DoctorRepository
	clock   Clock
}

func NewAvailabilityService(
	slots repository.SlotRepository,
	doctors repository.DoctorRepository,
	clock Clock,
) *AvailabilityService {
	return &AvailabilityService{slots: slots, doctors: doctors, clock: clock}
}

// Query возвращает свободные слоты от сегодняшнего дня, сгруппированные
// по дате и внутри даты по врачу. Без EndDate окно длится месяц от сегодня.
func (s *AvailabilityService) Query(ctx context.Context, f AvailabilityFilter) ([]DateGroup, error) {
	slots, err := s.list(ctx, f)
	if err != nil {
		return nil, err
	}
	return GroupSlots(slots), nil
}

func (s *AvailabilityService) list(ctx context.Context, f AvailabilityFilter) ([]model.TimeSlot, error) {
	today := s.clock.Today()

	from := today
	if f.StartDate != nil {
		if start := calendar.CivilDate(*f.StartDate); start.After(from) {
			from = start
		}
	}
	to := today.AddDate(0, 1, 0)
	if f.EndDate != nil {
		to = calendar.CivilDate(*f.EndDate)
	}
	if to.Before(from) {
		return nil, nil
	}

	slots, err := s.slots.ListAvailable(ctx, repository.SlotFilter{
		Specialty: f.Specialty,
		City:      f.City,
		From:      from,
		To:        to,
	})
	if err != nil {
		return nil, fmt.Errorf("list available slots: %w", err)
	}
	return slots, nil
}

func (s *AvailabilityService) All(ctx context.Context) ([]DateGroup, error) {
	return s.Query(ctx, AvailabilityFilter{})
}

func (s *AvailabilityService) ByCity(ctx context.Context, city string) ([]DateGroup, error) {
	return s.Query(ctx, AvailabilityFilter{City: city})
}

func (s *AvailabilityService) BySpecialtyAndCity(ctx context.Context, specialty model.Specialty, city string) ([]DateGroup, error) {
	return s.Query(ctx, AvailabilityFilter{Specialty: specialty, City: city})
}

// Cities возвращает города активных врачей по алфавиту.
func (s *AvailabilityService) Cities(ctx context.Context) ([]string, error) {
	cities, err := s.doctors.Cities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	if cities == nil {
		cities = []string{}
	}
	return cities, nil
}

// Doctors: активные врачи, отсортированы по имени.
func (s *AvailabilityService) Doctors(ctx context.Context, specialty model.Specialty, city string) ([]model.Doctor, error) {
	doctors, err := s.doctors.ListActive(ctx, specialty, city)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

func (s *AvailabilityService) Specialties() []model.Specialty {
	out := make([]model.Specialty, len(model.Specialties))
	copy(out, model.Specialties)
	return out
}

// Stats считает те же слоты, что вернул бы Query без фильтров.
func (s *AvailabilityService) Stats(ctx context.Context) (AvailabilityStats, error) {
	slots, err := s.list(ctx, AvailabilityFilter{})
	if err != nil {
		return AvailabilityStats{}, err
	}

	byCity := map[string]int{}
	bySpecialty := map[string]int{}
	for _, slot := range slots {
		d := slotDoctor(slot)
		if d == nil {
			continue
		}
		byCity[d.City]++
		bySpecialty[string(d.Specialty)]++
	}

	return AvailabilityStats{
		TotalAvailableSlots: len(slots),
		ByCity:              sortedCounts(byCity),
		BySpecialty:         sortedCounts(bySpecialty),
		LastUpdated:         s.clock.Now(),
	}, nil
}

// TotalSlots считает слоты в сгруппированном ответе.
func TotalSlots(groups []DateGroup) int {
	n := 0
	for _, g := range groups {
		for _, d := range g.Doctors {
			n += len(d.Slots)
		}
	}
	return n
}

// GroupSlots группирует уже упорядоченные слоты по дате, затем по врачу
// в порядке первого появления. Слоты без врача отбрасываются.
func GroupSlots(slots []model.TimeSlot) []DateGroup {
	groups := []DateGroup{}
	dateIdx := map[string]int{}
	doctorIdx := map[string]map[uint64]int{}

	for _, slot := range slots {
		d := slotDoctor(slot)
		if d == nil {
			continue
		}
		date := time.Time(slot.Date).Format(calendar.DateLayout)

		gi, ok := dateIdx[date]
		if !ok {
			gi = len(groups)
			dateIdx[date] = gi
			doctorIdx[date] = map[uint64]int{}
			groups = append(groups, DateGroup{Date: date})
		}

		di, ok := doctorIdx[date][d.ID]
		if !ok {
			di = len(groups[gi].Doctors)
			doctorIdx[date][d.ID] = di
			groups[gi].Doctors = append(groups[gi].Doctors, DoctorGroup{Doctor: *d})
		}

		groups[gi].Doctors[di].Slots = append(groups[gi].Doctors[di].Slots, SlotView{
			ID:        slot.ID,
			StartTime: calendar.FormatClock(time.Duration(slot.StartTime)),
			EndTime:   calendar.FormatClock(time.Duration(slot.EndTime)),
		})
	}
	return groups
}

func slotDoctor(slot model.TimeSlot) *model.Doctor {
	if slot.Schedule == nil {
		return nil
	}
	return slot.Schedule.Doctor
}

func sortedCounts(m map[string]int) []CountByKey {
	out := make([]CountByKey, 0, len(m))
	for k, v := range m {
		out = append(out, CountByKey{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
