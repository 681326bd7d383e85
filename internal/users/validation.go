package users

import (
	"strings"

	"github.com/angelmondragon/user-management/pkg/enums"
	pkgerrors "github.com/angelmondragon/user-management/pkg/errors"
	"github.com/angelmondragon/user-management/pkg/validation"
)

type fieldsInput struct {
	UserName   string `json:"userName" validate:"required,min=4,max=255,alphanum"`
	FirstName  string `json:"firstName" validate:"required,min=1,max=255,alphanumunicode"`
	LastName   string `json:"lastName" validate:"required,min=1,max=255,alphanumunicode"`
	Email      string `json:"email" validate:"required,max=255,email"`
	UserStatus string `json:"userStatus" validate:"required,oneof=A I T"`
	Department string `json:"department" validate:"omitempty,max=255,alphanumunicode_spaces"`
}

// ValidateCreate trims and checks a create request.
func ValidateCreate(req CreateUserRequest) (Fields, error) {
	return normalize(fieldsInput{
		UserName:   req.UserName,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		UserStatus: req.UserStatus,
	}, req.Department)
}

// ValidateUpdate trims and checks an update request. Updates replace every
// field, so the rules match ValidateCreate.
func ValidateUpdate(req UpdateUserRequest) (Fields, error) {
	return normalize(fieldsInput{
		UserName:   req.UserName,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		UserStatus: req.UserStatus,
	}, req.Department)
}

func normalize(in fieldsInput, department *string) (Fields, error) {
	in.UserName = strings.TrimSpace(in.UserName)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.UserStatus = strings.TrimSpace(in.UserStatus)
	if department != nil {
		in.Department = strings.TrimSpace(*department)
	}

	details := map[string]string{}
	if err := validation.Struct(in); err != nil {
		typed := pkgerrors.As(err)
		fieldErrs, ok := typed.Details().(map[string]string)
		if !ok {
			return Fields{}, err
		}
		for field, msg := range fieldErrs {
			details[field] = msg
		}
	}
	if department != nil && in.Department == "" {
		details["department"] = "must not be blank"
	}
	if len(details) > 0 {
		return Fields{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}

	status, err := enums.ParseUserStatus(in.UserStatus)
	if err != nil {
		return Fields{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed").
			WithDetails(map[string]string{"userStatus": "is invalid"})
	}

	fields := Fields{
		UserName:  in.UserName,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Status:    status,
	}
	if department != nil {
		dept := in.Department
		fields.Department = &dept
	}
	return fields, nil
}
