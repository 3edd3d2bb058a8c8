package dashboard

import (
	"time"

	"github.com/userdash/userdash/internal/form"
	"github.com/userdash/userdash/internal/model"
)

// Mode is the form state of a dashboard.
type Mode int

const (
	ModeIdle Mode = iota
	ModeCreate
	ModeEdit
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeEdit:
		return "edit"
	default:
		return "idle"
	}
}

// MarshalText renders the mode by name in JSON.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Operator-facing messages.
const (
	MsgFetchFailed  = "Failed to fetch users"
	MsgCreated      = "User created successfully!"
	MsgCreateFailed = "Failed to create user"
	MsgUpdated      = "User updated successfully!"
	MsgUpdateFailed = "Failed to update user"
	MsgDeleted      = "User deleted successfully!"
	MsgDeleteFailed = "Failed to delete user"
)

// Notification is a transient message shown to the operator.
type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// State is a point-in-time copy of a dashboard session.
type State struct {
	Records      []model.User  `json:"records"`
	ListLoading  bool          `json:"isListLoading"`
	Mode         Mode          `json:"mode"`
	FormOpen     bool          `json:"isFormOpen"`
	Editing      *model.User   `json:"editingRecord,omitempty"`
	Submitting   bool          `json:"isSubmitting"`
	Notification *Notification `json:"notification,omitempty"`
	Form         *form.View    `json:"form,omitempty"`
}
