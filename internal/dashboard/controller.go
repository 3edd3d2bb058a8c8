// Package dashboard coordinates one operator's console session: the canonical
// record list, the form lifecycle and the notification slot.
//
// Controller methods may be called from concurrent requests. State is guarded
// by a mutex that is never held across a call to the user service.
package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/userdash/userdash/internal/form"
	"github.com/userdash/userdash/internal/listview"
	"github.com/userdash/userdash/internal/metrics"
	"github.com/userdash/userdash/internal/model"
)

// DefaultNotificationTTL is how long a notification stays visible.
const DefaultNotificationTTL = 5 * time.Second

// Transport is the subset of the user service the dashboard drives.
type Transport interface {
	ListAll(ctx context.Context) ([]model.User, error)
	Create(ctx context.Context, in model.UserInput) (*model.User, error)
	Update(ctx context.Context, id string, patch model.UserPatch) (*model.User, error)
	Delete(ctx context.Context, id string) error
}

// Confirmer gates a destructive action on an explicit operator decision.
type Confirmer interface {
	Confirm(ctx context.Context, id string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, id string) bool

// Confirm calls f. A nil func declines.
func (f ConfirmFunc) Confirm(ctx context.Context, id string) bool {
	if f == nil {
		return false
	}
	return f(ctx, id)
}

// Answer returns a Confirmer that always gives the decision yes.
func Answer(yes bool) Confirmer {
	return ConfirmFunc(func(context.Context, string) bool { return yes })
}

// Timer is a pending notification expiry.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(c *Controller) {
		if recorder != nil {
			c.metrics = recorder
		}
	}
}

// WithNotificationTTL sets how long notifications stay visible.
func WithNotificationTTL(ttl time.Duration) Option {
	return func(c *Controller) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithAfterFunc replaces the timer used for notification expiry.
func WithAfterFunc(fn AfterFunc) Option {
	return func(c *Controller) {
		if fn != nil {
			c.afterFunc = fn
		}
	}
}

// WithClock replaces the clock used to stamp notification expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller owns a dashboard session.
type Controller struct {
	transport Transport
	logger    *slog.Logger
	metrics   metrics.Recorder
	ttl       time.Duration
	afterFunc AfterFunc
	now       func() time.Time

	mu           sync.Mutex
	records      []model.User
	listLoading  bool
	mode         Mode
	editing      *model.User
	form         *form.Form
	submitting   bool
	notification *Notification
	timer        Timer
	issued       uint64
	applied      uint64
	mounted      bool
	unmounted    bool
}

// New returns an idle controller with an empty list.
func New(transport Transport, opts ...Option) *Controller {
	c := &Controller{
		transport: transport,
		logger:    slog.Default(),
		metrics:   metrics.NewNoop(),
		ttl:       DefaultNotificationTTL,
		afterFunc: realAfterFunc,
		now:       time.Now,
		records:   []model.User{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "dashboard")
	return c
}

// Mount performs the initial refresh. Later calls do nothing.
func (c *Controller) Mount(ctx context.Context) {
	c.mu.Lock()
	if c.mounted || c.unmounted {
		c.mu.Unlock()
		return
	}
	c.mounted = true
	c.mu.Unlock()

	c.Refresh(ctx)
}

// Unmount discards the session. Pending expiry timers are stopped and
// in-flight operations complete without visible effect.
func (c *Controller) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.unmounted = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.notification = nil
}

// Refresh reloads the canonical list from the service.
//
// Overlapping refreshes are sequenced by issue order: a result is applied
// only if no later-issued refresh has already been applied. The loading
// flag clears when the latest-issued refresh settles. On failure the list
// keeps its previous contents.
func (c *Controller) Refresh(ctx context.Context) {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	c.issued++
	seq := c.issued
	c.listLoading = true
	c.mu.Unlock()

	users, err := c.transport.ListAll(context.WithoutCancel(ctx))

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq == c.issued {
		c.listLoading = false
	}
	if err != nil {
		c.logger.Error("failed to fetch users", "error", err, "seq", seq)
		c.metrics.IncRefresh(metrics.RefreshFailed)
		c.notifyLocked(KindError, MsgFetchFailed)
		return
	}
	if seq < c.applied {
		c.logger.Debug("discarding stale refresh", "seq", seq, "applied", c.applied)
		c.metrics.IncRefresh(metrics.RefreshStale)
		return
	}

	c.applied = seq
	c.records = users
	c.metrics.IncRefresh(metrics.RefreshApplied)
	for i, u := range users {
		if !u.HasID() {
			c.logger.Warn("record without id", "pos", i, "email", u.Email)
		}
	}
}

// OpenCreate opens an empty form. It does nothing unless the dashboard is idle.
func (c *Controller) OpenCreate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unmounted || c.mode != ModeIdle {
		return false
	}
	c.mode = ModeCreate
	c.editing = nil
	c.form = form.New(nil)
	return true
}

// OnEdit opens the form seeded from user, replacing any open draft. It is
// ignored while a submission is in flight.
func (c *Controller) OnEdit(ctx context.Context, user model.User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unmounted || c.submitting {
		return
	}
	u := user
	c.mode = ModeEdit
	c.editing = &u
	c.form = form.New(&u)
}

// OnDelete deletes id without asking. Use Delete to go through a gate.
func (c *Controller) OnDelete(ctx context.Context, id string) {
	c.Delete(ctx, id, Answer(true))
}

// OnCancel closes the form and discards the draft.
func (c *Controller) OnCancel(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitting || c.mode == ModeIdle {
		return
	}
	c.closeFormLocked()
}

// OnSubmit sends payload to the service as a create or an update depending
// on the form mode. On success the form closes, a success notification is
// shown and the list is refreshed. On failure the form stays open with its
// draft intact.
func (c *Controller) OnSubmit(ctx context.Context, payload model.UserInput) {
	c.mu.Lock()
	if c.unmounted || c.submitting || c.mode == ModeIdle {
		c.mu.Unlock()
		return
	}
	mode := c.mode
	var id string
	if mode == ModeEdit {
		if c.editing == nil || !c.editing.HasID() {
			c.mu.Unlock()
			c.logger.Warn("update skipped for record without id")
			return
		}
		id = c.editing.ID
	}
	f := c.form
	c.submitting = true
	f.SetBusy(true)
	c.mu.Unlock()

	callCtx := context.WithoutCancel(ctx)
	var err error
	if mode == ModeCreate {
		_, err = c.transport.Create(callCtx, payload)
	} else {
		_, err = c.transport.Update(callCtx, id, payload.Patch())
	}

	c.mu.Lock()
	c.submitting = false
	f.SetBusy(false)
	if err != nil {
		c.logger.Error("submit failed", "mode", mode.String(), "id", id, "error", err)
		if mode == ModeCreate {
			c.notifyLocked(KindError, MsgCreateFailed)
		} else {
			c.notifyLocked(KindError, MsgUpdateFailed)
		}
		c.mu.Unlock()
		return
	}

	if c.form == f {
		c.closeFormLocked()
	}
	if mode == ModeCreate {
		c.notifyLocked(KindSuccess, MsgCreated)
	} else {
		c.notifyLocked(KindSuccess, MsgUpdated)
	}
	c.mu.Unlock()

	c.Refresh(callCtx)
}

// Delete removes id after confirm approves it. A declined confirmation
// leaves every piece of state untouched.
func (c *Controller) Delete(ctx context.Context, id string, confirm Confirmer) {
	if id == "" || confirm == nil {
		return
	}
	c.mu.Lock()
	unmounted := c.unmounted
	c.mu.Unlock()
	if unmounted || !confirm.Confirm(ctx, id) {
		return
	}

	callCtx := context.WithoutCancel(ctx)
	if err := c.transport.Delete(callCtx, id); err != nil {
		c.logger.Error("delete failed", "id", id, "error", err)
		c.mu.Lock()
		c.notifyLocked(KindError, MsgDeleteFailed)
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.notifyLocked(KindSuccess, MsgDeleted)
	c.mu.Unlock()

	c.Refresh(callCtx)
}

// Submit fills the open form with values and confirms it.
// It reports false when no form is open or the form is busy.
func (c *Controller) Submit(ctx context.Context, values map[string]string) bool {
	f := c.Form()
	if f == nil {
		return false
	}
	f.Fill(values)
	return f.Confirm(ctx, c)
}

// Cancel cancels the open form. It reports false when no form is open or
// the form is busy.
func (c *Controller) Cancel(ctx context.Context) bool {
	f := c.Form()
	if f == nil {
		return false
	}
	return f.Cancel(ctx, c)
}

// ListHandler returns the list view handler for this session. Delete
// intents go through confirm.
func (c *Controller) ListHandler(confirm Confirmer) listview.Handler {
	return listIntents{c: c, confirm: confirm}
}

type listIntents struct {
	c       *Controller
	confirm Confirmer
}

func (l listIntents) OnEdit(ctx context.Context, user model.User) {
	l.c.OnEdit(ctx, user)
}

func (l listIntents) OnDelete(ctx context.Context, id string) {
	l.c.Delete(ctx, id, l.confirm)
}

// Form returns the open form, or nil when the dashboard is idle.
func (c *Controller) Form() *form.Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// List returns a view over the current canonical list.
func (c *Controller) List() listview.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return listview.New(c.recordsLocked(), c.listLoading)
}

// Snapshot returns a copy of the session state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		Records:     c.recordsLocked(),
		ListLoading: c.listLoading,
		Mode:        c.mode,
		FormOpen:    c.mode != ModeIdle,
		Submitting:  c.submitting,
	}
	if c.editing != nil {
		u := *c.editing
		s.Editing = &u
	}
	if c.notification != nil {
		n := *c.notification
		s.Notification = &n
	}
	if c.form != nil {
		v := c.form.View()
		s.Form = &v
	}
	return s
}

func (c *Controller) recordsLocked() []model.User {
	out := make([]model.User, len(c.records))
	copy(out, c.records)
	return out
}

func (c *Controller) closeFormLocked() {
	c.mode = ModeIdle
	c.editing = nil
	c.form = nil
}

// notifyLocked replaces the current notification and schedules its expiry.
// A pending expiry for an older notification never clears a newer one.
func (c *Controller) notifyLocked(kind Kind, message string) {
	if c.unmounted {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}

	id := ulid.Make().String()
	c.notification = &Notification{
		ID:        id,
		Kind:      kind,
		Message:   message,
		ExpiresAt: c.now().Add(c.ttl),
	}
	c.timer = c.afterFunc(c.ttl, func() { c.expire(id) })
	c.metrics.IncNotification(string(kind))
}

func (c *Controller) expire(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.notification != nil && c.notification.ID == id {
		c.notification = nil
		c.timer = nil
	}
}
