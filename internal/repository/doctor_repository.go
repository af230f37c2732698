package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

type DoctorRepository interface {
	// Создать врача.
	Create(ctx context.Context, doctor *model.Doctor) error
	// Найти врача по ID.
	GetByID(ctx context.Context, id uint64) (*model.Doctor, error)
	// Активные врачи с необязательными фильтрами, по имени.
	ListActive(ctx context.Context, specialty model.Specialty, city string) ([]model.Doctor, error)
	// Города активных врачей без повторов, по алфавиту.
	Cities(ctx context.Context) ([]string, error)
	// Сколько врачей вообще заведено.
	Count(ctx context.Context) (int64, error)
}

type GormDoctorRepository struct {
	db *gorm.DB
}

func NewGormDoctorRepository(db *gorm.DB) *GormDoctorRepository {
	return &GormDoctorRepository{db: db}
}

func (r *GormDoctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	return r.db.WithContext(ctx).Create(doctor).Error
}

func (r *GormDoctorRepository) GetByID(ctx context.Context, id uint64) (*model.Doctor, error) {
	var d model.Doctor
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *GormDoctorRepository) ListActive(ctx context.Context, specialty model.Specialty, city string) ([]model.Doctor, error) {
	q := r.db.WithContext(ctx).
		Model(&model.Doctor{}).
		Where("is_active = ?", true)

	if specialty != "" {
		q = q.Where("specialty = ?", specialty)
	}
	if city != "" {
		q = q.Where("city = ?", city)
	}

	var doctors []model.Doctor
	if err := q.Order("name ASC").Order("id ASC").Find(&doctors).Error; err != nil {
		return nil, err
	}
	return doctors, nil
}

func (r *GormDoctorRepository) Cities(ctx context.Context) ([]string, error) {
	var cities []string
	err := r.db.WithContext(ctx).
		Model(&model.Doctor{}).
		Where("is_active = ?", true).
		Distinct("city").
		Order("city ASC").
		Pluck("city", &cities).
		Error
	if err != nil {
		return nil, err
	}
	return cities, nil
}

func (r *GormDoctorRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Doctor{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
