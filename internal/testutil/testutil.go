// Package testutil provides shared test helpers, including an in-memory
// stand-in for the remote user service.
package testutil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/userdash/userdash/internal/model"
	"github.com/userdash/userdash/internal/transport"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// Endpoint paths served by UserService, one per remote operation.
const (
	PathList    = "/getUsers"
	PathGetByID = "/getUserById"
	PathCreate  = "/createUser"
	PathUpdate  = "/updateUser"
	PathDelete  = "/deleteUser"
)

// UserService is an in-memory user service speaking the remote wire
// protocol: one endpoint per operation, the record id in ?id=.
type UserService struct {
	Server *httptest.Server

	mu      sync.Mutex
	users   []model.User
	next    int
	failing map[transport.Op]int
	calls   []transport.Op
	now     func() time.Time
}

// NewUserService starts a service seeded with users. It is closed when the
// test ends.
func NewUserService(t testing.TB, users ...model.User) *UserService {
	t.Helper()

	s := &UserService{
		users:   append([]model.User(nil), users...),
		failing: make(map[transport.Op]int),
		now:     time.Now,
	}

	r := chi.NewRouter()
	r.Get(PathList, s.list)
	r.Get(PathGetByID, s.get)
	r.Post(PathCreate, s.create)
	r.Put(PathUpdate, s.update)
	r.Delete(PathDelete, s.remove)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Server.Close)
	return s
}

// Endpoints returns the transport configuration for this service.
func (s *UserService) Endpoints() transport.Endpoints {
	return transport.Endpoints{
		List:    s.Server.URL + PathList,
		GetByID: s.Server.URL + PathGetByID,
		Create:  s.Server.URL + PathCreate,
		Update:  s.Server.URL + PathUpdate,
		Delete:  s.Server.URL + PathDelete,
	}
}

// FailWith makes every call to op answer status until cleared with 0.
func (s *UserService) FailWith(op transport.Op, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failing, op)
		return
	}
	s.failing[op] = status
}

// Users returns a copy of the stored records.
func (s *UserService) Users() []model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.User(nil), s.users...)
}

// Calls returns the operations received so far, in order.
func (s *UserService) Calls() []transport.Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transport.Op(nil), s.calls...)
}

// begin records the call and reports whether it should be answered normally.
func (s *UserService) begin(w http.ResponseWriter, op transport.Op) bool {
	s.calls = append(s.calls, op)
	if status, ok := s.failing[op]; ok {
		writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
		return false
	}
	return true
}

func (s *UserService) list(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.begin(w, transport.OpList) {
		return
	}
	writeJSON(w, http.StatusOK, s.users)
}

func (s *UserService) get(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.begin(w, transport.OpGetByID) {
		return
	}
	i := s.indexLocked(r.URL.Query().Get("id"))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "User not found"})
		return
	}
	writeJSON(w, http.StatusOK, s.users[i])
}

func (s *UserService) create(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.begin(w, transport.OpCreate) {
		return
	}
	var in model.UserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.next++
	u := model.User{
		ID:        fmt.Sprintf("user-%d", s.next),
		Name:      in.Name,
		Email:     in.Email,
		Age:       in.Age,
		CreatedAt: model.NewTimestamp(s.now().UTC().Truncate(time.Millisecond)),
	}
	s.users = append(s.users, u)
	writeJSON(w, http.StatusCreated, u)
}

func (s *UserService) update(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.begin(w, transport.OpUpdate) {
		return
	}
	i := s.indexLocked(r.URL.Query().Get("id"))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "User not found"})
		return
	}
	var p model.UserPatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if p.Name != nil {
		s.users[i].Name = *p.Name
	}
	if p.Email != nil {
		s.users[i].Email = *p.Email
	}
	if p.Age != nil {
		s.users[i].Age = *p.Age
	}
	writeJSON(w, http.StatusOK, s.users[i])
}

func (s *UserService) remove(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.begin(w, transport.OpDelete) {
		return
	}
	i := s.indexLocked(r.URL.Query().Get("id"))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "User not found"})
		return
	}
	s.users = append(s.users[:i], s.users[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (s *UserService) indexLocked(id string) int {
	for i, u := range s.users {
		if id != "" && u.ID == id {
			return i
		}
	}
	return -1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
