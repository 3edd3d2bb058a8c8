// Package listview renders the user table and turns row actions into intents.
package listview

import (
	"context"

	"github.com/userdash/userdash/internal/model"
)

// Handler receives row intents.
type Handler interface {
	OnEdit(ctx context.Context, user model.User)
	OnDelete(ctx context.Context, id string)
}

// Mode is what the view shows.
type Mode int

const (
	ModeLoading Mode = iota
	ModeEmpty
	ModeRows
)

func (m Mode) String() string {
	switch m {
	case ModeLoading:
		return "loading"
	case ModeEmpty:
		return "empty"
	default:
		return "rows"
	}
}

// Row is one rendered record.
type Row struct {
	Pos       int
	User      model.User
	CanDelete bool
}

// View renders a snapshot of the canonical list. It keeps nothing between renders.
type View struct {
	users   []model.User
	loading bool
}

// New returns a view over users.
func New(users []model.User, loading bool) View {
	return View{users: users, loading: loading}
}

// Mode reports which of the three states the view renders.
func (v View) Mode() Mode {
	switch {
	case v.loading:
		return ModeLoading
	case len(v.users) == 0:
		return ModeEmpty
	default:
		return ModeRows
	}
}

// Count is the number of records in the snapshot.
func (v View) Count() int {
	return len(v.users)
}

// Rows returns one row per record. Delete is only offered for records with an id.
func (v View) Rows() []Row {
	rows := make([]Row, len(v.users))
	for i, u := range v.users {
		rows[i] = Row{Pos: i, User: u, CanDelete: u.HasID()}
	}
	return rows
}

// Find returns the record rendered at pos, provided its id still matches id.
// A mismatch means the operator acted on a stale rendering.
func (v View) Find(pos int, id string) (model.User, bool) {
	if v.loading || pos < 0 || pos >= len(v.users) {
		return model.User{}, false
	}
	u := v.users[pos]
	if u.ID != id {
		return model.User{}, false
	}
	return u, true
}

// Edit emits an edit intent for the row at pos.
func (v View) Edit(ctx context.Context, pos int, id string, h Handler) bool {
	u, ok := v.Find(pos, id)
	if !ok {
		return false
	}
	h.OnEdit(ctx, u)
	return true
}

// Delete emits a delete intent for the row at pos. Rows without an id have
// no delete trigger, so nothing is emitted for them.
func (v View) Delete(ctx context.Context, pos int, id string, h Handler) bool {
	u, ok := v.Find(pos, id)
	if !ok || !u.HasID() {
		return false
	}
	h.OnDelete(ctx, u.ID)
	return true
}

// Lookup finds the row for id. Used when an intent carries only an id.
func (v View) Lookup(id string) (Row, bool) {
	if id == "" {
		return Row{}, false
	}
	for i, u := range v.users {
		if u.ID == id {
			return Row{Pos: i, User: u, CanDelete: true}, true
		}
	}
	return Row{}, false
}
