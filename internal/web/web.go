// Package web renders the console pages from an embedded template bundle.
package web

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"time"

	"github.com/flosch/pongo2/v6"

	"github.com/userdash/userdash/internal/dashboard"
	"github.com/userdash/userdash/internal/listview"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

//go:embed static/*
var embeddedStatic embed.FS

// Page template names.
const (
	PageDashboard = "dashboard.html"
	PageConfirm   = "confirm.html"
	PageError     = "error.html"
)

// createdAtLayout formats record creation times in the table.
const createdAtLayout = "2006-01-02 15:04 MST"

// StaticFS exposes the stylesheet bundle for serving under /static/.
func StaticFS() fs.FS {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		return embeddedStatic
	}
	return sub
}

// Renderer executes the page templates. It is safe for concurrent use.
type Renderer struct {
	pages map[string]*pongo2.Template
}

// NewRenderer parses every page up front so template errors fail at startup.
func NewRenderer() (*Renderer, error) {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return nil, fmt.Errorf("web: templates: %w", err)
	}
	set := pongo2.NewSet("userdash", pongo2.NewFSLoader(sub))

	r := &Renderer{pages: make(map[string]*pongo2.Template)}
	for _, name := range []string{PageDashboard, PageConfirm, PageError} {
		tpl, err := set.FromFile(name)
		if err != nil {
			return nil, fmt.Errorf("web: load template %q: %w", name, err)
		}
		r.pages[name] = tpl
	}
	return r, nil
}

// Render writes page name with data bound as "page".
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	tpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("web: unknown page %q", name)
	}
	if err := tpl.ExecuteWriter(pongo2.Context{"page": data}, w); err != nil {
		return fmt.Errorf("web: execute %q: %w", name, err)
	}
	return nil
}

// NotificationView is the banner shown above the page.
type NotificationView struct {
	ID      string
	Kind    string
	Message string
}

// FormView is the open create/edit form.
type FormView struct {
	Title       string
	Name        string
	Email       string
	Age         string
	SubmitLabel string
	Disabled    bool
}

// RowView is one table row.
type RowView struct {
	Pos        int
	ID         string
	Name       string
	Email      string
	Age        int
	CreatedAt  string
	CanDelete  bool
	DeletePath string
}

// ListView is the user table in one of its three modes.
type ListView struct {
	Mode  string
	Count int
	Rows  []RowView
}

// DashboardPage is the main console page.
type DashboardPage struct {
	Notification *NotificationView
	Form         *FormView
	List         ListView
}

// ConfirmPage asks the operator to confirm a delete.
type ConfirmPage struct {
	Notification *NotificationView
	ID           string
	Name         string
	Email        string
	DeletePath   string
}

// ErrorPage reports a request that could not be served.
type ErrorPage struct {
	Notification *NotificationView
	Status       int
	Title        string
	Message      string
}

// NewDashboardPage builds the page model from a session snapshot.
func NewDashboardPage(s dashboard.State) DashboardPage {
	p := DashboardPage{Notification: notificationView(s.Notification)}

	if s.Form != nil {
		p.Form = &FormView{
			Title:       s.Form.Title,
			Name:        s.Form.Draft.Name,
			Email:       s.Form.Draft.Email,
			Age:         s.Form.Draft.Age,
			SubmitLabel: s.Form.SubmitLabel,
			Disabled:    s.Form.Disabled,
		}
	}

	view := listview.New(s.Records, s.ListLoading)
	p.List = ListView{Mode: view.Mode().String(), Count: view.Count()}
	if view.Mode() == listview.ModeRows {
		for _, row := range view.Rows() {
			rv := RowView{
				Pos:       row.Pos,
				ID:        row.User.ID,
				Name:      row.User.Name,
				Email:     row.User.Email,
				Age:       row.User.Age,
				CreatedAt: formatCreatedAt(row.User.CreatedAt.Time),
				CanDelete: row.CanDelete,
			}
			if row.CanDelete {
				rv.DeletePath = DeletePath(row.User.ID)
			}
			p.List.Rows = append(p.List.Rows, rv)
		}
	}
	return p
}

// NewConfirmPage builds the delete confirmation for row.
func NewConfirmPage(s dashboard.State, row listview.Row) ConfirmPage {
	return ConfirmPage{
		Notification: notificationView(s.Notification),
		ID:           row.User.ID,
		Name:         row.User.Name,
		Email:        row.User.Email,
		DeletePath:   DeletePath(row.User.ID),
	}
}

// DeletePath is the confirm page URL for id.
func DeletePath(id string) string {
	return "/users/" + url.PathEscape(id) + "/delete"
}

// NewErrorPage builds an error page for status.
func NewErrorPage(status int, message string) ErrorPage {
	return ErrorPage{Status: status, Title: http.StatusText(status), Message: message}
}

func notificationView(n *dashboard.Notification) *NotificationView {
	if n == nil {
		return nil
	}
	return &NotificationView{ID: n.ID, Kind: string(n.Kind), Message: n.Message}
}

func formatCreatedAt(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(createdAtLayout)
}
