package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
)

const passwordSymbols = "@$!%*?&"

var registerOnce sync.Once

// Register installs the custom rules on gin's validator engine. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		RegisterOn(v)
	})
}

// RegisterOn installs the custom rules on v.
func RegisterOn(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Errors are only returned for empty tags or duplicate built-in names.
	_ = v.RegisterValidation("strongpassword", strongPassword)
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return models.Role(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("memberrole", func(fl validator.FieldLevel) bool {
		return models.MemberRole(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("projectstatus", func(fl validator.FieldLevel) bool {
		return models.ProjectStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("taskstatus", func(fl validator.FieldLevel) bool {
		return models.TaskStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("taskpriority", func(fl validator.FieldLevel) bool {
		return models.TaskPriority(fl.Field().String()).Valid()
	})
}

// IsStrongPassword reports whether password satisfies the registration password policy.
func IsStrongPassword(password string) bool {
	if len(password) < constants.MinPasswordLength {
		return false
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}

	return upper && lower && digit && symbol
}

func strongPassword(fl validator.FieldLevel) bool {
	return IsStrongPassword(fl.Field().String())
}

// FieldErrors renders validator errors as API field errors. It returns nil for other errors.
func FieldErrors(err error) []apierrors.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	fields := make([]apierrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apierrors.FieldError{
			Field:   jsonName(fe.Field()),
			Message: message(fe),
		})
	}
	return fields
}

func message(fe validator.FieldError) string {
	field := jsonName(fe.Field())
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Invalid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "uuid", "uuid4":
		return "Invalid ID format"
	case "strongpassword":
		return fmt.Sprintf("Password must be at least %d characters and contain an uppercase letter, a lowercase letter, a number and one of %s",
			constants.MinPasswordLength, passwordSymbols)
	case "role":
		return "Role must be one of ADMIN, MANAGER, STAFF"
	case "memberrole":
		return "Member role must be one of ADMIN, MANAGER, MEMBER"
	case "projectstatus":
		return "Status must be one of ACTIVE, ARCHIVED, COMPLETED, ON_HOLD"
	case "taskstatus":
		return "Status must be one of TODO, IN_PROGRESS, IN_REVIEW, DONE, BLOCKED"
	case "taskpriority":
		return "Priority must be one of LOW, MEDIUM, HIGH, URGENT"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, param)
	default:
		return field + " is invalid"
	}
}

// jsonName lower-cases the first letter of a Go field name.
func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
