// Package validation checks form values against declarative schemas before
// anything is sent to the backend.
//
// Schemas are structs with validate tags. Rules that depend on sibling
// fields are expressed with required_if or struct-level validators, and the
// whole struct is re-validated on every change, so a condition such as
// "api_url is required when the provider is a proxy" always reflects the
// current values.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/raphaelgruber/onyx-admin/internal/client"
)

// ErrInvalid is returned by Submit when the form has field errors.
var ErrInvalid = errors.New("invalid form")

// FieldErrors maps a field's JSON name to its message.
type FieldErrors map[string]string

// Fields returns the offending field names in sorted order.
func (fe FieldErrors) Fields() []string {
	names := make([]string, 0, len(fe))
	for name := range fe {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Error implements error.
func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, name := range fe.Fields() {
		parts = append(parts, fmt.Sprintf("%s: %s", name, fe[name]))
	}
	return strings.Join(parts, "; ")
}

// Unwrap makes errors.Is(err, ErrInvalid) hold for any FieldErrors.
func (fe FieldErrors) Unwrap() error {
	return ErrInvalid
}

// messenger is implemented by schemas that override the messages of
// presence rules. Keys are JSON field names.
type messenger interface {
	FieldMessages() map[string]string
}

var presenceTags = map[string]bool{
	"required":    true,
	"required_if": true,
	"min":         true,
	"gt":          true,
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		v.RegisterStructValidation(validateLLMProvider, LLMProviderForm{})
		v.RegisterStructValidation(validateEmbeddingProvider, EmbeddingProviderForm{})
		v.RegisterStructValidation(validateSettings, client.Settings{})
		validate = v
	})
	return validate
}

// Validate checks v and returns its field errors, or nil when v is valid.
func Validate(v any) FieldErrors {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError: v is not a struct.
		return FieldErrors{"": err.Error()}
	}

	var custom map[string]string
	if m, ok := v.(messenger); ok {
		custom = m.FieldMessages()
	}

	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		name := fieldName(fe)
		if _, seen := out[name]; seen {
			continue
		}
		if msg, ok := custom[name]; ok && presenceTags[fe.Tag()] {
			out[name] = msg
			continue
		}
		out[name] = defaultMessage(name, fe)
	}
	return out
}

// fieldName strips the struct name from the namespace, so nested and
// struct-level errors keep their dotted path (custom_config.region).
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func defaultMessage(name string, fe validator.FieldError) string {
	label := name
	if i := strings.LastIndex(label, "."); i >= 0 {
		label = label[i+1:]
	}
	switch fe.Tag() {
	case "required", "required_if":
		return label + " is required"
	case "url":
		return label + " must be a valid URL"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, fe.Param())
	case "pages":
		return "At least one of the chat and search pages must be enabled"
	case "page_enabled":
		return "The default page must be enabled"
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", label, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", label, fe.Tag())
	}
}

// Form holds editable values of a schema and their current field errors.
// It is safe for concurrent use.
type Form[T any] struct {
	mu     sync.Mutex
	values T
	errs   FieldErrors
}

// NewForm validates initial and returns a form holding it.
func NewForm[T any](initial T) *Form[T] {
	return &Form[T]{values: initial, errs: Validate(initial)}
}

// Values returns a copy of the current values.
func (f *Form[T]) Values() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// Update applies change and re-validates every field.
func (f *Form[T]) Update(change func(*T)) FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	change(&f.values)
	f.errs = Validate(f.values)
	return f.errs
}

// Errors returns the field errors of the current values.
func (f *Form[T]) Errors() FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs
}

// Valid reports whether the current values pass validation.
func (f *Form[T]) Valid() bool {
	return len(f.Errors()) == 0
}

// Submit re-validates and calls fn with the values only when they are valid.
// Otherwise it returns the FieldErrors, which match ErrInvalid.
func (f *Form[T]) Submit(fn func(T) error) error {
	f.mu.Lock()
	f.errs = Validate(f.values)
	values, errs := f.values, f.errs
	f.mu.Unlock()

	if len(errs) > 0 {
		return errs
	}
	return fn(values)
}
