package users

import (
	"context"
	"fmt"

	"github.com/angelmondragon/user-management/pkg/db/models"
	pkgerrors "github.com/angelmondragon/user-management/pkg/errors"
	"github.com/angelmondragon/user-management/pkg/logger"
)

// Operation names reported to the OperationRecorder.
const (
	OpList   = "list"
	OpGet    = "get"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// OutcomeOK is recorded for calls that returned no error.
const OutcomeOK = "OK"

const (
	fieldUserName = "userName"
	fieldEmail    = "email"
)

type userRepository interface {
	List(ctx context.Context) ([]models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, fields Fields) (*models.User, error)
	Update(ctx context.Context, id int64, fields Fields) (*models.User, error)
	Delete(ctx context.Context, id int64) error
	ExistsByUserName(ctx context.Context, name string, excludeID int64) (bool, error)
	ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error)
}

// OperationRecorder observes the outcome of every service call. outcome is
// OutcomeOK or the error code.
type OperationRecorder interface {
	ObserveUserOperation(operation, outcome string)
}

// Service exposes user operations.
type Service interface {
	List(ctx context.Context) ([]UserDTO, error)
	Get(ctx context.Context, id int64) (*UserDTO, error)
	Create(ctx context.Context, req CreateUserRequest) (*UserDTO, error)
	Update(ctx context.Context, id int64, req UpdateUserRequest) (*UserDTO, error)
	Delete(ctx context.Context, id int64) error
}

type service struct {
	repo     userRepository
	logg     *logger.Logger
	recorder OperationRecorder
}

// NewService builds the user service. logg and recorder may be nil.
func NewService(repo userRepository, logg *logger.Logger, recorder OperationRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     repo,
		logg:     logg,
		recorder: recorder,
	}, nil
}

func (s *service) List(ctx context.Context) ([]UserDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, s.done(OpList, err)
	}
	return FromModels(rows), s.done(OpList, nil)
}

func (s *service) Get(ctx context.Context, id int64) (*UserDTO, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.done(OpGet, err)
	}
	return FromModel(user), s.done(OpGet, nil)
}

func (s *service) Create(ctx context.Context, req CreateUserRequest) (*UserDTO, error) {
	fields, err := ValidateCreate(req)
	if err != nil {
		return nil, s.done(OpCreate, err)
	}

	if err := s.ensureAvailable(ctx, fields, NoExclusion); err != nil {
		return nil, s.done(OpCreate, err)
	}

	user, err := s.repo.Create(ctx, fields)
	if err != nil {
		return nil, s.done(OpCreate, s.resolveUniqueViolation(ctx, err, fields))
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.UserID), "user created")
	return FromModel(user), s.done(OpCreate, nil)
}

// Update replaces every mutable field of user id. A missing target is
// reported before any uniqueness conflict.
func (s *service) Update(ctx context.Context, id int64, req UpdateUserRequest) (*UserDTO, error) {
	fields, err := ValidateUpdate(req)
	if err != nil {
		return nil, s.done(OpUpdate, err)
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, s.done(OpUpdate, err)
	}

	if err := s.ensureAvailable(ctx, fields, id); err != nil {
		return nil, s.done(OpUpdate, err)
	}

	user, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, s.done(OpUpdate, s.resolveUniqueViolation(ctx, err, fields))
	}

	s.logg.Info(s.logg.WithUserID(ctx, id), "user updated")
	return FromModel(user), s.done(OpUpdate, nil)
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.done(OpDelete, err)
	}
	s.logg.Info(s.logg.WithUserID(ctx, id), "user deleted")
	return s.done(OpDelete, nil)
}

// ensureAvailable fails with CONFLICT when a user other than excludeID
// already holds the requested user name or email. User name is checked first.
func (s *service) ensureAvailable(ctx context.Context, fields Fields, excludeID int64) error {
	taken, err := s.repo.ExistsByUserName(ctx, fields.UserName, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return s.conflict(ctx, nil, fieldUserName, fields.UserName)
	}

	taken, err = s.repo.ExistsByEmail(ctx, fields.Email, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return s.conflict(ctx, nil, fieldEmail, fields.Email)
	}
	return nil
}

// resolveUniqueViolation turns a store-level UNIQUE_CONSTRAINT into the same
// CONFLICT the pre-checks produce. Other errors pass through untouched.
func (s *service) resolveUniqueViolation(ctx context.Context, err error, fields Fields) error {
	if !pkgerrors.IsCode(err, pkgerrors.CodeUniqueConstraint) {
		return err
	}
	typed := pkgerrors.As(err)

	var column string
	if details, ok := typed.Details().(map[string]string); ok {
		column = details["column"]
	}

	switch column {
	case models.ColumnUserName:
		return s.conflict(ctx, err, fieldUserName, fields.UserName)
	case models.ColumnEmail:
		return s.conflict(ctx, err, fieldEmail, fields.Email)
	}

	msg := fmt.Sprintf("Username '%s' or email '%s' already exists", fields.UserName, fields.Email)
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"user_name": fields.UserName,
		"email":     fields.Email,
	}), "user conflict")
	return pkgerrors.Wrap(pkgerrors.CodeConflict, err, msg).WithDetails(map[string]any{
		"fields": []string{fieldUserName, fieldEmail},
		"values": map[string]string{fieldUserName: fields.UserName, fieldEmail: fields.Email},
	})
}

func (s *service) conflict(ctx context.Context, cause error, field, value string) error {
	var msg string
	switch field {
	case fieldUserName:
		msg = fmt.Sprintf("Username '%s' already exists", value)
	default:
		msg = fmt.Sprintf("Email '%s' already exists", value)
	}

	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"field": field,
		"value": value,
	}), "user conflict")

	return pkgerrors.Wrap(pkgerrors.CodeConflict, cause, msg).WithDetails(map[string]string{
		"field": field,
		"value": value,
	})
}

// done reports the outcome of op and returns err unchanged.
func (s *service) done(op string, err error) error {
	if s.recorder == nil {
		return err
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = string(pkgerrors.CodeOf(err))
	}
	s.recorder.ObserveUserOperation(op, outcome)
	return err
}
