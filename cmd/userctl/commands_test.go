package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/userdash/userdash/internal/model"
	"github.com/userdash/userdash/internal/transport"
)

type recordingService struct {
	users   []model.User
	created []model.UserInput
	patches map[string]model.UserPatch
	deleted []string
}

func (s *recordingService) ListAll(ctx context.Context) ([]model.User, error) {
	return s.users, nil
}

func (s *recordingService) GetByID(ctx context.Context, id string) (*model.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, &transport.Error{Op: transport.OpGetByID, Status: 404}
}

func (s *recordingService) Create(ctx context.Context, in model.UserInput) (*model.User, error) {
	s.created = append(s.created, in)
	return &model.User{ID: "new", Name: in.Name, Email: in.Email, Age: in.Age}, nil
}

func (s *recordingService) Update(ctx context.Context, id string, patch model.UserPatch) (*model.User, error) {
	if s.patches == nil {
		s.patches = make(map[string]model.UserPatch)
	}
	s.patches[id] = patch
	return nil, nil
}

func (s *recordingService) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func run(t *testing.T, svc userService, stdin string, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd(svc)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestList_Table(t *testing.T) {
	t.Parallel()

	svc := &recordingService{users: []model.User{{ID: "u1", Name: "Ana", Email: "a@x.com", Age: 30}}}
	out, err := run(t, svc, "", "list")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	for _, s := range []string{"ID", "NAME", "u1", "Ana", "a@x.com", "30"} {
		if !strings.Contains(out, s) {
			t.Errorf("output missing %q:\n%s", s, out)
		}
	}
}

func TestList_JSONAlwaysArray(t *testing.T) {
	t.Parallel()

	svc := &recordingService{users: []model.User{{ID: "u1", Name: "Ana"}}}
	out, err := run(t, svc, "", "list", "--json")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	var got []model.User
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if diff := cmp.Diff(svc.users, got); diff != "" {
		t.Errorf("users mismatch (-want +got):\n%s", diff)
	}
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()

	_, err := run(t, &recordingService{}, "", "get", "ghost")
	if err == nil || !strings.Contains(err.Error(), `"ghost" not found`) {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestCreate_ParsesAge(t *testing.T) {
	t.Parallel()

	svc := &recordingService{}
	if _, err := run(t, svc, "", "create", "--name", "Ana", "--email", "a@x.com", "--age", "42abc"); err != nil {
		t.Fatalf("create error = %v", err)
	}
	want := []model.UserInput{{Name: "Ana", Email: "a@x.com", Age: 42}}
	if diff := cmp.Diff(want, svc.created); diff != "" {
		t.Errorf("created mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdate_SendsOnlyGivenFields(t *testing.T) {
	t.Parallel()

	svc := &recordingService{}
	out, err := run(t, svc, "", "update", "u1", "--email", "new@x.com")
	if err != nil {
		t.Fatalf("update error = %v", err)
	}
	patch := svc.patches["u1"]
	if patch.Name != nil || patch.Age != nil || patch.Email == nil || *patch.Email != "new@x.com" {
		t.Errorf("patch = %+v, want only email", patch)
	}
	if !strings.Contains(out, "Updated user u1") {
		t.Errorf("output = %q", out)
	}

	if _, err := run(t, svc, "", "update", "u1"); err == nil {
		t.Error("expected error for an empty update")
	}
}

func TestDelete_Confirmation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		stdin   string
		args    []string
		deleted bool
	}{
		{"yes answer", "yes\n", nil, true},
		{"y answer", "Y\n", nil, true},
		{"no answer", "n\n", nil, false},
		{"empty answer", "\n", nil, false},
		{"closed stdin", "", nil, false},
		{"flag", "", []string{"--yes"}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &recordingService{}
			args := append([]string{"delete", "u1"}, tt.args...)
			out, err := run(t, svc, tt.stdin, args...)
			if err != nil {
				t.Fatalf("delete error = %v", err)
			}
			if got := len(svc.deleted) == 1; got != tt.deleted {
				t.Errorf("deleted = %v, want %v (output %q)", got, tt.deleted, out)
			}
		})
	}
}
