package publish

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/Sokol111/newsletter-publisher/internal/idempotency"
	"github.com/go-playground/validator/v10"
)

// MaxTitleLength bounds the issue title.
const MaxTitleLength = 200

// Command asks to publish a newsletter issue exactly once per
// (CallerID, IdempotencyKey).
type Command struct {
	CallerID       string `json:"-"`
	IdempotencyKey string `json:"idempotency_key"`
	Title          string `json:"title" validate:"required,max=200"`
	TextContent    string `json:"text" validate:"required"`
	HTMLContent    string `json:"html" validate:"required"`
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError is returned before any state is touched when the command
// is malformed. Messages are meant for the client.
type ValidationError struct {
	Fields []FieldError
	cause  error
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid publish command: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validate checks cmd and the key together so the client sees every problem at once.
func validate(v *validator.Validate, cmd Command) (idempotency.Key, error) {
	var fields []FieldError
	var causes []error

	if err := v.Struct(cmd); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return "", fmt.Errorf("failed to validate publish command: %w", err)
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
		causes = append(causes, err)
	}

	key, err := idempotency.ParseKey(cmd.IdempotencyKey)
	if err != nil {
		msg := strings.TrimPrefix(err.Error(), idempotency.ErrInvalidKey.Error()+": ")
		fields = append(fields, FieldError{Field: "idempotency_key", Message: msg})
		causes = append(causes, err)
	}

	if len(fields) > 0 {
		return "", &ValidationError{Fields: fields, cause: errors.Join(causes...)}
	}
	return key, nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "max":
		return "must be at most " + fe.Param() + " characters long"
	}
	return "is invalid"
}
