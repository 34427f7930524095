// Package validation holds the explicit input checks run at the edge of every
// use case, before any store is touched.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	maxNameLength     = 200
	maxEmailLength    = 150
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLength = 72
)

// ErrInvalid is matched by every *Error.
var ErrInvalid = errors.New("validation failed")

// Error describes the first rejected field of a request.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func (e *Error) Unwrap() error { return ErrInvalid }

var validate = validator.New()

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Registration checks a sign-up request.
func Registration(name, email, password string) error {
	if err := check("name", strings.TrimSpace(name), fmt.Sprintf("required,max=%d", maxNameLength)); err != nil {
		return err
	}
	if err := Email(email); err != nil {
		return err
	}
	return Password(password)
}

// Password checks that a new password is between 8 and 72 bytes. Length is
// counted in bytes because that is what bcrypt accepts.
func Password(password string) error {
	if err := check("password", password, "required"); err != nil {
		return err
	}
	if n := len(password); n < minPasswordLength || n > maxPasswordLength {
		return &Error{Field: "password", Message: fmt.Sprintf("must be between %d and %d bytes", minPasswordLength, maxPasswordLength)}
	}
	return nil
}

// Login checks a credential pair. Password strength is not re-checked here.
func Login(email, password string) error {
	if err := Email(email); err != nil {
		return err
	}
	return check("password", password, "required")
}

// Email checks that email is a well-formed address of acceptable length.
func Email(email string) error {
	return check("email", NormalizeEmail(email), fmt.Sprintf("required,email,max=%d", maxEmailLength))
}

// Amount checks that a minor-unit amount is at least 1.
func Amount(amount int64) error {
	return check("amount", amount, "gte=1")
}

func check(field string, value any, tag string) error {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &Error{Field: field, Message: "is invalid"}
	}
	return &Error{Field: field, Message: describe(fieldErrs[0])}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return "is invalid"
	}
}
