package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

// Фильтр свободных слотов. From и To включительно, календарные даты.
type SlotFilter struct {
	Specialty model.Specialty
	City      string
	From      time.Time
	To        time.Time
}

type SlotRepository interface {
	// Свободные слоты активных врачей по фильтру,
	// по дате, времени начала и ID; с подгруженными Schedule.Doctor.
	// Выключенное расписание уже созданные слоты не скрывает.
	ListAvailable(ctx context.Context, f SlotFilter) ([]model.TimeSlot, error)
	// Найти слот по ID вместе с расписанием и врачом.
	GetByID(ctx context.Context, id uint64) (*model.TimeSlot, error)
	// Вставить пачку слотов, пропуская уже существующие. Возвращает число вставленных.
	CreateBatch(ctx context.Context, slots []model.TimeSlot) (int64, error)
	// Занять слот, если он ещё свободен. false, если кто-то успел раньше.
	MarkBooked(ctx context.Context, id uint64) (bool, error)
	// Вернуть слот в пул свободных.
	Release(ctx context.Context, id uint64) error
	// Репозиторий поверх транзакции.
	WithTx(tx *gorm.DB) SlotRepository
}

type GormSlotRepository struct {
	db *gorm.DB
}

func NewGormSlotRepository(db *gorm.DB) *GormSlotRepository {
	return &GormSlotRepository{db: db}
}

func (r *GormSlotRepository) WithTx(tx *gorm.DB) SlotRepository {
	return &GormSlotRepository{db: tx}
}

func (r *GormSlotRepository) ListAvailable(ctx context.Context, f SlotFilter) ([]model.TimeSlot, error) {
	q := r.db.WithContext(ctx).
		Model(&model.TimeSlot{}).
		Joins("JOIN doctor_schedules ON doctor_schedules.id = time_slots.doctor_schedule_id").
		Joins("JOIN doctors ON doctors.id = doctor_schedules.doctor_id").
		Where("time_slots.is_available = ?", true).
		Where("doctors.is_active = ?", true).
		Where("time_slots.date >= ?", datatypes.Date(f.From))

	if !f.To.IsZero() {
		q = q.Where("time_slots.date <= ?", datatypes.Date(f.To))
	}
	if f.Specialty != "" {
		q = q.Where("doctors.specialty = ?", f.Specialty)
	}
	if f.City != "" {
		q = q.Where("doctors.city = ?", f.City)
	}

	var slots []model.TimeSlot
	err := q.Preload("Schedule.Doctor").
		Order("time_slots.date ASC").
		Order("time_slots.start_time ASC").
		Order("time_slots.id ASC").
		Find(&slots).
		Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *GormSlotRepository) GetByID(ctx context.Context, id uint64) (*model.TimeSlot, error) {
	var slot model.TimeSlot
	if err := r.db.WithContext(ctx).Preload("Schedule.Doctor").First(&slot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *GormSlotRepository) CreateBatch(ctx context.Context, slots []model.TimeSlot) (int64, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	// Уникальный индекс (schedule, date, start_time) делает повторную генерацию no-op.
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(slots, 200)
	return res.RowsAffected, res.Error
}

func (r *GormSlotRepository) MarkBooked(ctx context.Context, id uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.TimeSlot{}).
		Where("id = ? AND is_available = ?", id, true).
		Update("is_available", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormSlotRepository) Release(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Model(&model.TimeSlot{}).
		Where("id = ?", id).
		Update("is_available", true).
		Error
}
