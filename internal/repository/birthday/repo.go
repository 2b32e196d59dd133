package birthday

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/wb-go/wbf/dbpg"

	"github.com/kmazurek/birthday-greeter/internal/model"
)

var (
	ErrBirthdayNotFound = errors.New("birthday not found")
	ErrEmailExists      = errors.New("email already exists")
)

const uniqueViolation = "23505"

// Repository provides methods to interact with the birthdays table.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new birthday repository.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// CreateBirthday inserts a new birthday record and returns it with the
// store-assigned id and timestamps filled in. A violation of the unique
// email index is reported as ErrEmailExists.
func (r *Repository) CreateBirthday(ctx context.Context, b model.Birthday) (model.Birthday, error) {
	query := `
		INSERT INTO birthdays (
		    username, email, dob
		) VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at;
    `

	err := r.db.Master.QueryRowContext(ctx, query, b.Username, b.Email, b.DOB).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return model.Birthday{}, ErrEmailExists
		}

		return model.Birthday{}, fmt.Errorf("failed to create birthday: %w", err)
	}

	return b, nil
}

// GetAllBirthdays retrieves all birthdays ordered by date of birth ascending.
func (r *Repository) GetAllBirthdays(ctx context.Context) ([]model.Birthday, error) {
	query := `
		SELECT id, username, email, dob, created_at, updated_at
		FROM birthdays
		ORDER BY dob ASC;
    `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all birthdays: %w", err)
	}
	defer rows.Close()

	return scanBirthdays(rows)
}

// DeleteBirthday removes a birthday by its ID.
func (r *Repository) DeleteBirthday(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM birthdays
		WHERE id = $1;
    `

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete birthday: %w", err)
	}

	rows, _ := res.RowsAffected()

	if rows == 0 {
		return ErrBirthdayNotFound
	}

	return nil
}

// GetByEmail retrieves a birthday by its unique email address.
func (r *Repository) GetByEmail(ctx context.Context, email string) (model.Birthday, error) {
	query := `
		SELECT id, username, email, dob, created_at, updated_at
		FROM birthdays
		WHERE email = $1;
    `

	var b model.Birthday
	err := r.db.Master.QueryRowContext(ctx, query, email).
		Scan(&b.ID, &b.Username, &b.Email, &b.DOB, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Birthday{}, ErrBirthdayNotFound
		}

		return model.Birthday{}, fmt.Errorf("failed to get birthday by email: %w", err)
	}

	return b, nil
}

// GetByMonthDay retrieves all birthdays whose date of birth falls on the
// given month and day, irrespective of year.
func (r *Repository) GetByMonthDay(ctx context.Context, month time.Month, day int) ([]model.Birthday, error) {
	query := `
		SELECT id, username, email, dob, created_at, updated_at
		FROM birthdays
		WHERE EXTRACT(MONTH FROM dob) = $1 AND EXTRACT(DAY FROM dob) = $2;
    `

	rows, err := r.db.QueryContext(ctx, query, int(month), day)
	if err != nil {
		return nil, fmt.Errorf("failed to get birthdays by month and day: %w", err)
	}
	defer rows.Close()

	return scanBirthdays(rows)
}

func scanBirthdays(rows *sql.Rows) ([]model.Birthday, error) {
	var birthdays []model.Birthday
	for rows.Next() {
		var b model.Birthday
		if err := rows.Scan(&b.ID, &b.Username, &b.Email, &b.DOB, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}

		birthdays = append(birthdays, b)
	}

	return birthdays, rows.Err()
}
