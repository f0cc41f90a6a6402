package forms

import (
	"context"
	"errors"
	"fmt"
	"sync"

	apperrors "github.com/charlesng35/campushub/pkg/errors"
	"github.com/charlesng35/campushub/pkg/validator"
)

// State is the lifecycle position of a Modal.
type State string

const (
	StateClosed        State = "closed"
	StateEditing       State = "editing"
	StateSubmitting    State = "submitting"
	StateClosedSuccess State = "closed_success"
	StateClosedCancel  State = "closed_cancel"
)

var (
	// ErrNotEditing is returned when Submit is called on a modal that is not open for editing.
	ErrNotEditing = errors.New("forms: modal is not open for editing")
	// ErrInvalid is wrapped by FieldErrors returned from Submit.
	ErrInvalid = errors.New("forms: validation failed")
)

// FieldErrors maps JSON field names to messages.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	return fmt.Sprintf("%s: %d field(s)", ErrInvalid.Error(), len(f))
}

func (f FieldErrors) Unwrap() error { return ErrInvalid }

// SubmitFunc performs the write behind a form.
type SubmitFunc[T any] func(ctx context.Context, values T) error

// Rule is a form level check run after tag validation. It returns per field messages.
type Rule[T any] func(values T) FieldErrors

// Option customises a Modal.
type Option[T any] func(*Modal[T])

// WithDefaults supplies the values shown on open and restored after a successful submit.
func WithDefaults[T any](fn func() T) Option[T] {
	return func(m *Modal[T]) {
		if fn != nil {
			m.defaults = fn
		}
	}
}

// WithRules appends form level rules.
func WithRules[T any](rules ...Rule[T]) Option[T] {
	return func(m *Modal[T]) {
		m.rules = append(m.rules, rules...)
	}
}

// WithNormalizer rewrites submitted values before validation, e.g. to apply defaults.
func WithNormalizer[T any](fn func(T) T) Option[T] {
	return func(m *Modal[T]) {
		if fn != nil {
			m.normalize = fn
		}
	}
}

// OnSuccess registers the refresh callback invoked after a successful submit.
func OnSuccess[T any](fn func()) Option[T] {
	return func(m *Modal[T]) {
		m.onSuccess = fn
	}
}

// Modal is the state machine behind a creation form:
// closed -> editing -> submitting -> closed_success, with failures returning to editing.
type Modal[T any] struct {
	mu sync.Mutex

	state       State
	values      T
	fieldErrors FieldErrors
	notice      string

	submit    SubmitFunc[T]
	rules     []Rule[T]
	defaults  func() T
	normalize func(T) T
	onSuccess func()
}

// NewModal builds a closed modal that calls submit once its values validate.
func NewModal[T any](submit SubmitFunc[T], opts ...Option[T]) *Modal[T] {
	m := &Modal[T]{
		state:    StateClosed,
		submit:   submit,
		defaults: func() T { var zero T; return zero },
	}
	for _, opt := range opts {
		opt(m)
	}
	m.values = m.defaults()
	return m
}

// Open moves the modal into editing with default values and no errors.
func (m *Modal[T]) Open() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateEditing || m.state == StateSubmitting {
		return
	}
	m.state = StateEditing
	m.values = m.defaults()
	m.fieldErrors = nil
	m.notice = ""
}

// Cancel closes the modal without submitting and discards entered values.
func (m *Modal[T]) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateSubmitting {
		return
	}
	m.state = StateClosedCancel
	m.values = m.defaults()
	m.fieldErrors = nil
	m.notice = ""
}

// Submit validates values and, when valid, runs the submit function. Validation failures keep the
// modal in editing and return FieldErrors without calling submit. Submit failures also return to
// editing, record a notice and keep the entered values.
func (m *Modal[T]) Submit(ctx context.Context, values T) error {
	if ctx == nil {
		ctx = context.Background()
	}

	m.mu.Lock()
	if m.state != StateEditing {
		m.mu.Unlock()
		return ErrNotEditing
	}

	if m.normalize != nil {
		values = m.normalize(values)
	}
	m.values = values
	m.notice = ""

	if errs := m.validate(values); len(errs) > 0 {
		m.fieldErrors = errs
		m.mu.Unlock()
		return errs
	}

	m.fieldErrors = nil
	m.state = StateSubmitting
	submit := m.submit
	m.mu.Unlock()

	var err error
	if submit != nil {
		err = submit(ctx, values)
	}

	m.mu.Lock()
	if err != nil {
		m.state = StateEditing
		m.notice = noticeFor(err)
		var fieldErrs FieldErrors
		if errors.As(err, &fieldErrs) {
			m.fieldErrors = fieldErrs
		}
		m.mu.Unlock()
		return err
	}

	m.state = StateClosedSuccess
	m.values = m.defaults()
	onSuccess := m.onSuccess
	m.mu.Unlock()

	if onSuccess != nil {
		onSuccess()
	}
	return nil
}

// State reports the current lifecycle state.
func (m *Modal[T]) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Values returns the values currently held by the form.
func (m *Modal[T]) Values() T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values
}

// FieldErrors returns a copy of the per field errors of the last submit attempt.
func (m *Modal[T]) FieldErrors() FieldErrors {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.fieldErrors) == 0 {
		return nil
	}
	out := make(FieldErrors, len(m.fieldErrors))
	for k, v := range m.fieldErrors {
		out[k] = v
	}
	return out
}

// Notice returns the user facing message recorded by the last failed submit.
func (m *Modal[T]) Notice() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notice
}

func (m *Modal[T]) validate(values T) FieldErrors {
	errs := FieldErrors{}

	if err := validator.ValidateStruct(values); err != nil {
		var failures validator.ValidationErrors
		if errors.As(err, &failures) {
			for field, msg := range failures.Fields() {
				errs[field] = msg
			}
		} else {
			errs["_form"] = err.Error()
		}
	}

	for _, rule := range m.rules {
		for field, msg := range rule(values) {
			if _, exists := errs[field]; !exists {
				errs[field] = msg
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func noticeFor(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Something went wrong. Please try again."
}
