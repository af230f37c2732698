package calendar

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

// Ошибки валидации пациента.
var (
	ErrInvalidUserID = errors.New("invalid user id")
	ErrUserNotFound  = errors.New("user not found")
	ErrUserInactive  = errors.New("user is inactive")
)

// Источник данных о пользователях.
// В реале это репозиторий поверх БД, в тестах — мок.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// ValidateUser:
//   - проверяет корректность идентификатора;
//   - вытаскивает пользователя из хранилища;
//   - проверяет, что он активен.
func ValidateUser(ctx context.Context, store UserStore, userID uint64) (*model.User, error) {
	if userID == 0 {
		return nil, ErrInvalidUserID
	}

	u, err := store.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && u == nil) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}

	if !u.IsActive {
		return nil, ErrUserInactive
	}
	return u, nil
}
