package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

type ScheduleRepository interface {
	// Создать правило расписания.
	Create(ctx context.Context, schedule *model.Schedule) error
	// Найти правило по ID.
	GetByID(ctx context.Context, id uint64) (*model.Schedule, error)
	// Все активные правила (для генератора слотов).
	ListActive(ctx context.Context) ([]model.Schedule, error)
	// Правила врача, включая выключенные.
	ListByDoctor(ctx context.Context, doctorID uint64) ([]model.Schedule, error)
	// Активные правила врача на конкретный день недели.
	ListActiveByDoctorDay(ctx context.Context, doctorID uint64, day model.DayOfWeek) ([]model.Schedule, error)
	// Выключить правило; уже созданные слоты не трогаются.
	Deactivate(ctx context.Context, id uint64) error
}

type GormScheduleRepository struct {
	db *gorm.DB
}

func NewGormScheduleRepository(db *gorm.DB) *GormScheduleRepository {
	return &GormScheduleRepository{db: db}
}

func (r *GormScheduleRepository) Create(ctx context.Context, schedule *model.Schedule) error {
	return r.db.WithContext(ctx).Create(schedule).Error
}

func (r *GormScheduleRepository) GetByID(ctx context.Context, id uint64) (*model.Schedule, error) {
	var s model.Schedule
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormScheduleRepository) ListActive(ctx context.Context) ([]model.Schedule, error) {
	var schedules []model.Schedule
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("doctor_id ASC").
		Order("id ASC").
		Find(&schedules).
		Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *GormScheduleRepository) ListByDoctor(ctx context.Context, doctorID uint64) ([]model.Schedule, error) {
	var schedules []model.Schedule
	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("id ASC").
		Find(&schedules).
		Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *GormScheduleRepository) ListActiveByDoctorDay(ctx context.Context, doctorID uint64, day model.DayOfWeek) ([]model.Schedule, error) {
	var schedules []model.Schedule
	err := r.db.WithContext(ctx).
		Where("doctor_id = ? AND day_of_week = ? AND is_active = ?", doctorID, day, true).
		Find(&schedules).
		Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *GormScheduleRepository) Deactivate(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Schedule{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
