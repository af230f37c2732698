package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

type AppointmentRepository interface {
	// Создать запись.
	Create(ctx context.Context, appt *model.Appointment) error
	// Получить запись по ID вместе с врачом и слотом.
	GetByID(ctx context.Context, id uint64) (*model.Appointment, error)
	// То же, но с блокировкой строки до конца транзакции (там, где СУБД умеет).
	GetForUpdate(ctx context.Context, id uint64) (*model.Appointment, error)
	// Отменить запись, если она ещё не отменена. false, если уже отменена.
	MarkCancelled(ctx context.Context, id uint64, reason string, at time.Time) (bool, error)
	// Все записи пациента по дате и времени приёма.
	ListByUser(ctx context.Context, userID uint64) ([]model.Appointment, error)
	// Репозиторий поверх транзакции.
	WithTx(tx *gorm.DB) AppointmentRepository
}

// Реализация на GORM.
type GormAppointmentRepository struct {
	db *gorm.DB
}

func NewGormAppointmentRepository(db *gorm.DB) *GormAppointmentRepository {
	return &GormAppointmentRepository{db: db}
}

func (r *GormAppointmentRepository) WithTx(tx *gorm.DB) AppointmentRepository {
	return &GormAppointmentRepository{db: tx}
}

func (r *GormAppointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	return r.db.WithContext(ctx).Create(appt).Error
}

func (r *GormAppointmentRepository) GetByID(ctx context.Context, id uint64) (*model.Appointment, error) {
	var a model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Doctor").
		Preload("TimeSlot").
		First(&a, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormAppointmentRepository) GetForUpdate(ctx context.Context, id uint64) (*model.Appointment, error) {
	var a model.Appointment
	// SQLite-диалект GORM молча игнорирует FOR UPDATE.
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&a, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormAppointmentRepository) MarkCancelled(ctx context.Context, id uint64, reason string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("id = ? AND status <> ?", id, model.AppointmentStatusCancelled).
		Updates(map[string]any{
			"status":              model.AppointmentStatusCancelled,
			"cancellation_reason": reason,
			"cancelled_at":        at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormAppointmentRepository) ListByUser(ctx context.Context, userID uint64) ([]model.Appointment, error) {
	var appts []model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Doctor").
		Where("user_id = ?", userID).
		Order("appointment_date ASC").
		Order("appointment_time ASC").
		Order("id ASC").
		Find(&appts).
		Error
	if err != nil {
		return nil, err
	}
	return appts, nil
}
