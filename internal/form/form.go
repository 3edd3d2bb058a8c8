// Package form holds the draft behind the create/edit user form.
//
// A Form knows nothing about persistence. It keeps what the operator typed,
// and on confirmation hands a plain payload to its Handler.
package form

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/userdash/userdash/internal/model"
)

// Field names accepted by Set, matching the HTML input names.
const (
	FieldName  = "name"
	FieldEmail = "email"
	FieldAge   = "age"
)

// Labels shown on the submit control.
const (
	LabelCreate = "Create User"
	LabelUpdate = "Update User"
	LabelBusy   = "Saving..."
)

// ErrBusy is returned when the draft is edited during a submission.
var ErrBusy = errors.New("form is busy")

// Handler receives the form's outcomes.
type Handler interface {
	OnSubmit(ctx context.Context, payload model.UserInput)
	OnCancel(ctx context.Context)
}

// Draft is the form content as typed. Age stays a string until submission.
type Draft struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   string `json:"age"`
}

// Payload converts the draft into a submission payload.
func (d Draft) Payload() model.UserInput {
	return model.UserInput{
		Name:  d.Name,
		Email: d.Email,
		Age:   model.ParseAge(d.Age),
	}
}

// Form is the editable draft of one record.
type Form struct {
	mu      sync.Mutex
	draft   Draft
	editing bool
	busy    bool
}

// New returns a form seeded from existing, or empty when existing is nil.
func New(existing *model.User) *Form {
	f := &Form{draft: Draft{Age: "0"}}
	if existing != nil {
		f.editing = true
		f.draft = Draft{
			Name:  existing.Name,
			Email: existing.Email,
			Age:   strconv.Itoa(existing.Age),
		}
	}
	return f
}

// Editing reports whether the form edits an existing record.
func (f *Form) Editing() bool {
	return f.editing
}

// Draft returns a copy of the current draft.
func (f *Form) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Set updates one field of the draft. It is refused while the form is busy.
func (f *Form) Set(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.busy {
		return ErrBusy
	}
	switch field {
	case FieldName:
		f.draft.Name = value
	case FieldEmail:
		f.draft.Email = value
	case FieldAge:
		f.draft.Age = value
	default:
		return fmt.Errorf("unknown form field %q", field)
	}
	return nil
}

// Fill sets every known field present in values.
func (f *Form) Fill(values map[string]string) {
	for _, field := range []string{FieldName, FieldEmail, FieldAge} {
		if v, ok := values[field]; ok {
			_ = f.Set(field, v)
		}
	}
}

// SetBusy marks the form as disabled while a submission is in flight.
func (f *Form) SetBusy(busy bool) {
	f.mu.Lock()
	f.busy = busy
	f.mu.Unlock()
}

// Busy reports whether the form is disabled.
func (f *Form) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

// Confirm emits the draft to h. It does nothing while the form is busy and
// reports whether the payload was emitted.
func (f *Form) Confirm(ctx context.Context, h Handler) bool {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return false
	}
	payload := f.draft.Payload()
	f.mu.Unlock()

	h.OnSubmit(ctx, payload)
	return true
}

// Cancel asks h to close the form. It does nothing while the form is busy.
func (f *Form) Cancel(ctx context.Context, h Handler) bool {
	if f.Busy() {
		return false
	}
	h.OnCancel(ctx)
	return true
}

// View is what a template needs to render the form.
type View struct {
	Title       string `json:"title"`
	Draft       Draft  `json:"draft"`
	SubmitLabel string `json:"submitLabel"`
	Disabled    bool   `json:"disabled"`
	Editing     bool   `json:"editing"`
}

// View returns the render model for the current form state.
func (f *Form) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := View{
		Title:       "Create New User",
		Draft:       f.draft,
		SubmitLabel: LabelCreate,
		Disabled:    f.busy,
		Editing:     f.editing,
	}
	if f.editing {
		v.Title = "Edit User"
		v.SubmitLabel = LabelUpdate
	}
	if f.busy {
		v.SubmitLabel = LabelBusy
	}
	return v
}
