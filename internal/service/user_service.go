package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

type RegisterUserInput struct {
	Name      string `validate:"required,max=100"`
	Email     string `validate:"required,email,max=100"`
	Phone     string `validate:"omitempty,max=20"`
	BirthDate string `validate:"omitempty,datetime=2006-01-02"`
}

var validate = validator.New()

// UserService ведёт локальную копию пациентов; аутентификация снаружи.
type UserService struct {
	users repository.UserRepository
	log   zerolog.Logger
}

func NewUserService(users repository.UserRepository, log zerolog.Logger) *UserService {
	return &UserService{users: users, log: log.With().Str("component", "users").Logger()}
}

// Register создаёт пациента по email или возвращает существующего, обновляя контактные данные.
func (s *UserService) Register(ctx context.Context, in RegisterUserInput) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, invalidArgument("invalid user: %v", err)
	}

	u := &model.User{Name: in.Name, Email: in.Email, Phone: in.Phone, IsActive: true}
	if in.BirthDate != "" {
		d, err := calendar.ParseDate(in.BirthDate)
		if err != nil {
			return nil, invalidArgument("birth date must be YYYY-MM-DD")
		}
		bd := datatypes.Date(d)
		u.BirthDate = &bd
	}

	saved, err := s.users.Upsert(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}
	s.log.Info().Uint64("user_id", saved.ID).Msg("user registered")
	return saved, nil
}

func (s *UserService) Get(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("user %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return u, nil
}
