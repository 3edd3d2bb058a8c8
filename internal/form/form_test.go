package form

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/userdash/userdash/internal/model"
)

type recordingHandler struct {
	submitted []model.UserInput
	cancelled int
}

func (h *recordingHandler) OnSubmit(ctx context.Context, payload model.UserInput) {
	h.submitted = append(h.submitted, payload)
}

func (h *recordingHandler) OnCancel(ctx context.Context) {
	h.cancelled++
}

func TestNew_Empty(t *testing.T) {
	t.Parallel()

	f := New(nil)
	if f.Editing() {
		t.Error("new form should not be editing")
	}
	if diff := cmp.Diff(Draft{Age: "0"}, f.Draft()); diff != "" {
		t.Errorf("draft mismatch (-want +got):\n%s", diff)
	}

	v := f.View()
	if v.Title != "Create New User" || v.SubmitLabel != LabelCreate {
		t.Errorf("view = %+v, want create labels", v)
	}
}

func TestNew_SeededFromRecord(t *testing.T) {
	t.Parallel()

	f := New(&model.User{ID: "u1", Name: "Ana", Email: "a@x.com", Age: 30})
	if !f.Editing() {
		t.Error("seeded form should be editing")
	}
	if diff := cmp.Diff(Draft{Name: "Ana", Email: "a@x.com", Age: "30"}, f.Draft()); diff != "" {
		t.Errorf("draft mismatch (-want +got):\n%s", diff)
	}

	v := f.View()
	if v.Title != "Edit User" || v.SubmitLabel != LabelUpdate {
		t.Errorf("view = %+v, want edit labels", v)
	}
}

func TestConfirm_EmitsDraft(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		age  string
		want int
	}{
		{"numeric", "30", 30},
		{"non numeric", "abc", 0},
		{"empty", "", 0},
		{"leading digits", "42abc", 42},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := New(nil)
			f.Fill(map[string]string{"name": "Ana", "email": "a@x.com", "age": tt.age})

			h := &recordingHandler{}
			if !f.Confirm(context.Background(), h) {
				t.Fatal("Confirm refused on idle form")
			}

			want := []model.UserInput{{Name: "Ana", Email: "a@x.com", Age: tt.want}}
			if diff := cmp.Diff(want, h.submitted); diff != "" {
				t.Errorf("payload mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSet_UnknownField(t *testing.T) {
	t.Parallel()

	f := New(nil)
	if err := f.Set("id", "u1"); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestBusy_DisablesForm(t *testing.T) {
	t.Parallel()

	f := New(nil)
	_ = f.Set(FieldName, "Ana")
	f.SetBusy(true)

	h := &recordingHandler{}
	if f.Confirm(context.Background(), h) {
		t.Error("Confirm accepted while busy")
	}
	if f.Cancel(context.Background(), h) {
		t.Error("Cancel accepted while busy")
	}
	if err := f.Set(FieldName, "Bob"); !errors.Is(err, ErrBusy) {
		t.Errorf("Set while busy: expected ErrBusy, got %v", err)
	}
	if len(h.submitted) != 0 || h.cancelled != 0 {
		t.Errorf("handler called while busy: %+v", h)
	}
	if f.Draft().Name != "Ana" {
		t.Errorf("draft changed while busy: %+v", f.Draft())
	}

	v := f.View()
	if !v.Disabled || v.SubmitLabel != LabelBusy {
		t.Errorf("busy view = %+v, want disabled with busy label", v)
	}

	f.SetBusy(false)
	if !f.Cancel(context.Background(), h) || h.cancelled != 1 {
		t.Error("Cancel refused after busy cleared")
	}
}
