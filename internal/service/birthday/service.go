package birthday

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kmazurek/birthday-greeter/internal/model"
	repo "github.com/kmazurek/birthday-greeter/internal/repository/birthday"
)

type birthdayRepository interface {
	CreateBirthday(ctx context.Context, b model.Birthday) (model.Birthday, error)
	GetAllBirthdays(ctx context.Context) ([]model.Birthday, error)
	DeleteBirthday(ctx context.Context, id uuid.UUID) error
	GetByEmail(ctx context.Context, email string) (model.Birthday, error)
	GetByMonthDay(ctx context.Context, month time.Month, day int) ([]model.Birthday, error)
}

// Service implements the business rules around birthday records: email
// normalization and uniqueness on create, ordered listing, tolerant delete.
type Service struct {
	repo birthdayRepository
}

func NewService(r birthdayRepository) *Service {
	return &Service{repo: r}
}

// CreateBirthday stores a new birthday record. The email is normalized to
// lowercase and checked for uniqueness before the insert; the storage-level
// unique index backs this check up.
func (s *Service) CreateBirthday(ctx context.Context, username, email string, dob time.Time) (model.Birthday, error) {
	email = model.NormalizeEmail(email)

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return model.Birthday{}, repo.ErrEmailExists
	}
	if !errors.Is(err, repo.ErrBirthdayNotFound) {
		return model.Birthday{}, fmt.Errorf("check existing email: %w", err)
	}

	b, err := s.repo.CreateBirthday(ctx, model.Birthday{
		Username: username,
		Email:    email,
		DOB:      dob,
	})
	if err != nil {
		return model.Birthday{}, fmt.Errorf("create birthday: %w", err)
	}

	return b, nil
}

// GetAllBirthdays returns every stored birthday, ordered by date of birth
// ascending.
func (s *Service) GetAllBirthdays(ctx context.Context) ([]model.Birthday, error) {
	birthdays, err := s.repo.GetAllBirthdays(ctx)
	if err != nil {
		return nil, fmt.Errorf("get all birthdays: %w", err)
	}

	return birthdays, nil
}

// DeleteBirthday removes a birthday by id.
func (s *Service) DeleteBirthday(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteBirthday(ctx, id); err != nil {
		return fmt.Errorf("delete birthday: %w", err)
	}

	return nil
}

// GetBirthdaysByMonthDay returns the stored birthdays falling on the given
// month and day, regardless of year.
func (s *Service) GetBirthdaysByMonthDay(ctx context.Context, month time.Month, day int) ([]model.Birthday, error) {
	birthdays, err := s.repo.GetByMonthDay(ctx, month, day)
	if err != nil {
		return nil, fmt.Errorf("get birthdays by month and day: %w", err)
	}

	return birthdays, nil
}
