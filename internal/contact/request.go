package contact

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrValidationIncomplete means a required field was empty; nothing was sent.
	ErrValidationIncomplete = errors.New("contact: name, email and message are required")
	// ErrRelayFailure wraps every relay error, whatever its cause.
	ErrRelayFailure = errors.New("contact: relay failed to send message")
	// ErrBusy is returned for a submit that arrives while a send is in flight.
	ErrBusy = errors.New("contact: a message is already being sent")
)

// Request is one submission as typed by the visitor.
type Request struct {
	Name    string `json:"name" form:"fullName" validate:"required,notblank"`
	Email   string `json:"email" form:"email" validate:"required"`
	Message string `json:"message" form:"message" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	if err != nil {
		panic(fmt.Sprintf("contact: register notblank validation: %v", err))
	}
	return v
}

// Validate returns ErrValidationIncomplete naming the missing fields.
func (r Request) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidationIncomplete, err)
	}
	missing := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		missing = append(missing, strings.ToLower(fe.Field()))
	}
	return fmt.Errorf("%w: missing %s", ErrValidationIncomplete, strings.Join(missing, ", "))
}

// Complete reports whether all three fields are filled in.
func (r Request) Complete() bool {
	return r.Validate() == nil
}
