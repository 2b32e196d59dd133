package birthday

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/kmazurek/birthday-greeter/internal/api/respond"
	"github.com/kmazurek/birthday-greeter/internal/model"
	repo "github.com/kmazurek/birthday-greeter/internal/repository/birthday"
)

// birthdayService defines the interface that the Handler depends on.
type birthdayService interface {
	CreateBirthday(ctx context.Context, username, email string, dob time.Time) (model.Birthday, error)
	GetAllBirthdays(ctx context.Context) ([]model.Birthday, error)
	DeleteBirthday(ctx context.Context, id uuid.UUID) error
}

// checkTrigger fires one birthday check on demand.
type checkTrigger interface {
	CheckBirthdays(ctx context.Context)
}

// Handler handles HTTP requests for birthday records and the manual check
// trigger.
type Handler struct {
	service   birthdayService
	checker   checkTrigger
	validator *validator.Validate
}

func NewHandler(s birthdayService, c checkTrigger, v *validator.Validate) *Handler {
	return &Handler{service: s, checker: c, validator: v}
}

// CreateRequest represents the JSON body expected when adding a birthday.
type CreateRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	DOB      string `json:"dob" validate:"required"`
}

// Create handles HTTP POST requests to add a new birthday.
func (h *Handler) Create(c *ginext.Context) {
	var req CreateRequest

	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	if err := h.validator.Struct(req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to validate request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	dob, err := time.Parse(time.DateOnly, req.DOB)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("dob", req.DOB).Msg("failed to parse date of birth")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid dob format, expected YYYY-MM-DD"))
		return
	}

	b, err := h.service.CreateBirthday(c.Request.Context(), req.Username, req.Email, dob)
	if err != nil {
		if errors.Is(err, repo.ErrEmailExists) {
			zlog.Logger.Warn().Str("email", req.Email).Msg("email already exists")
			respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("Email already exists"))
			return
		}

		zlog.Logger.Error().Err(err).Str("email", req.Email).Msg("failed to create birthday")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.Created(c.Writer, b)
}

// GetAll handles HTTP GET requests to list all birthdays, ordered by date
// of birth ascending.
func (h *Handler) GetAll(c *ginext.Context) {
	birthdays, err := h.service.GetAllBirthdays(c.Request.Context())
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to get birthdays")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	if birthdays == nil {
		birthdays = []model.Birthday{}
	}

	respond.OK(c.Writer, birthdays)
}

// Delete handles HTTP DELETE requests to remove a birthday by id. Deleting
// an unknown id is tolerated as a no-op.
func (h *Handler) Delete(c *ginext.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("id", idStr).Msg("failed to parse id")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid id"))
		return
	}

	if err := h.service.DeleteBirthday(c.Request.Context(), id); err != nil {
		if !errors.Is(err, repo.ErrBirthdayNotFound) {
			zlog.Logger.Error().Err(err).Str("id", idStr).Msg("failed to delete birthday")
			respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
			return
		}
	}

	respond.Message(c.Writer, "Birthday deleted successfully")
}

// CronTest handles HTTP GET requests that manually trigger the birthday
// check. The check runs in the background; the response returns
// immediately.
func (h *Handler) CronTest(c *ginext.Context) {
	zlog.Logger.Info().Msg("birthday check triggered manually")

	go h.checker.CheckBirthdays(context.Background())

	respond.Message(c.Writer, "Birthday check triggered manually")
}
