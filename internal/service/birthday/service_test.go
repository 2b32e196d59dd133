package birthday

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmazurek/birthday-greeter/internal/model"
	repo "github.com/kmazurek/birthday-greeter/internal/repository/birthday"
)

type fakeRepo struct {
	byEmail     map[string]model.Birthday
	created     []model.Birthday
	deleted     []uuid.UUID
	deleteErr   error
	byMonthDay  []model.Birthday
	allOrdered  []model.Birthday
	lastQueried string
}

func (f *fakeRepo) CreateBirthday(_ context.Context, b model.Birthday) (model.Birthday, error) {
	b.ID = uuid.New()
	f.created = append(f.created, b)
	return b, nil
}

func (f *fakeRepo) GetAllBirthdays(_ context.Context) ([]model.Birthday, error) {
	return f.allOrdered, nil
}

func (f *fakeRepo) DeleteBirthday(_ context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (model.Birthday, error) {
	f.lastQueried = email
	if b, ok := f.byEmail[email]; ok {
		return b, nil
	}
	return model.Birthday{}, repo.ErrBirthdayNotFound
}

func (f *fakeRepo) GetByMonthDay(_ context.Context, _ time.Month, _ int) ([]model.Birthday, error) {
	return f.byMonthDay, nil
}

func TestCreateBirthday_NormalizesEmail(t *testing.T) {
	f := &fakeRepo{}
	s := NewService(f)

	dob := time.Date(1990, time.June, 15, 0, 0, 0, 0, time.UTC)
	b, err := s.CreateBirthday(context.Background(), "Ada", "Ada@Example.COM", dob)
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", b.Email)
	assert.Equal(t, "ada@example.com", f.lastQueried)
	require.Len(t, f.created, 1)
	assert.Equal(t, "ada@example.com", f.created[0].Email)
}

func TestCreateBirthday_DuplicateEmail(t *testing.T) {
	f := &fakeRepo{byEmail: map[string]model.Birthday{
		"ada@example.com": {ID: uuid.New(), Email: "ada@example.com"},
	}}
	s := NewService(f)

	dob := time.Date(1990, time.June, 15, 0, 0, 0, 0, time.UTC)
	_, err := s.CreateBirthday(context.Background(), "Ada", "ada@example.com", dob)

	assert.ErrorIs(t, err, repo.ErrEmailExists)
	assert.Empty(t, f.created, "conflicting create must not insert")
}

func TestDeleteBirthday_NotFoundIsSurfaced(t *testing.T) {
	f := &fakeRepo{deleteErr: repo.ErrBirthdayNotFound}
	s := NewService(f)

	err := s.DeleteBirthday(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repo.ErrBirthdayNotFound)
}

func TestGetBirthdaysByMonthDay(t *testing.T) {
	want := []model.Birthday{{Email: "ada@example.com"}}
	f := &fakeRepo{byMonthDay: want}
	s := NewService(f)

	got, err := s.GetBirthdaysByMonthDay(context.Background(), time.June, 15)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
