package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

type EventRepository interface {
	// Записать событие аудита.
	Create(ctx context.Context, event *model.Event) error
	// Пачка неопубликованных событий по порядку создания.
	// В Postgres строки блокируются с SKIP LOCKED, чтобы несколько паблишеров не дрались.
	ListUnpublished(ctx context.Context, limit int) ([]model.Event, error)
	// Отметить события опубликованными.
	MarkPublished(ctx context.Context, ids []uint64, at time.Time) error
	WithTx(tx *gorm.DB) EventRepository
}

type GormEventRepository struct {
	db *gorm.DB
}

func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) WithTx(tx *gorm.DB) EventRepository {
	return &GormEventRepository{db: tx}
}

func (r *GormEventRepository) Create(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *GormEventRepository) ListUnpublished(ctx context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var events []model.Event
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("published_at IS NULL").
		Order("id ASC").
		Limit(limit).
		Find(&events).
		Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *GormEventRepository) MarkPublished(ctx context.Context, ids []uint64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Event{}).
		Where("id IN ?", ids).
		Update("published_at", at).
		Error
}
