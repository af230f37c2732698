package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

type UserRepository interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// Создать пациента или обновить контакты существующего по email.
	Upsert(ctx context.Context, u *model.User) (*model.User, error)
	WithTx(tx *gorm.DB) UserRepository
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) WithTx(tx *gorm.DB) UserRepository {
	return &GormUserRepository{db: tx}
}

func (r *GormUserRepository) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	// Keep only digits; ignore formatting characters.
	b := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		c := phone[i]
		if c >= '0' && c <= '9' {
			b = append(b, c)
		}
	}
	return string(b)
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) Upsert(ctx context.Context, in *model.User) (*model.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.Phone = normalizePhone(in.Phone)

	existing, err := r.FindByEmail(ctx, in.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := r.db.WithContext(ctx).Create(in).Error; err != nil {
			return nil, err
		}
		return in, nil
	}
	if err != nil {
		return nil, err
	}

	// update existing
	updates := map[string]any{"name": in.Name}
	if in.Phone != "" {
		updates["phone"] = in.Phone
	}
	if in.BirthDate != nil {
		updates["birth_date"] = in.BirthDate
	}
	if err := r.db.WithContext(ctx).Model(existing).Updates(updates).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, existing.ID)
}
