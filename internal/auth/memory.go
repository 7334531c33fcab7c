package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/JasonKing5/ifs/internal/ids"
)

var _ UserStore = (*MemoryStore)(nil)

// MemoryStore keeps users and role assignments in process memory. It backs
// local development and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[string]User
	byEmail     map[string]string
	roles       map[string]Role
	assignments map[string][]string
	now         func() time.Time
}

// NewMemoryStore seeds the given roles, or BuiltinRoles when none are passed.
func NewMemoryStore(roles ...Role) *MemoryStore {
	if len(roles) == 0 {
		roles = BuiltinRoles()
	}
	s := &MemoryStore{
		users:       make(map[string]User),
		byEmail:     make(map[string]string),
		roles:       make(map[string]Role, len(roles)),
		assignments: make(map[string][]string),
		now:         time.Now,
	}
	for _, r := range roles {
		s.roles[r.Name] = r
	}
	return s
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (User, error) {
	u, err := s.FindByEmailWithPasswordHash(ctx, email)
	if err != nil {
		return User{}, err
	}
	u.PasswordHash = ""
	return u, nil
}

func (s *MemoryStore) FindByEmailWithPasswordHash(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return User{}, ErrNotFound
	}
	return s.users[id], nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	u.PasswordHash = ""
	return u, nil
}

func (s *MemoryStore) Create(_ context.Context, u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(u.Email))
	if _, exists := s.byEmail[key]; exists {
		return User{}, fmt.Errorf("%w: email already exists", ErrConflict)
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := s.now().UTC()
	u.Email = key
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = u
	s.byEmail[key] = u.ID

	out := u
	out.PasswordHash = ""
	return out, nil
}

func (s *MemoryStore) UpdatePasswordHash(_ context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = s.now().UTC()
	s.users[userID] = u
	return nil
}

// Delete removes a user. Used to simulate an account vanishing between calls.
func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	delete(s.users, userID)
	delete(s.byEmail, u.Email)
	delete(s.assignments, userID)
	return nil
}

func (s *MemoryStore) AssignRoles(_ context.Context, userID string, roleNames []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return ErrNotFound
	}
	current := s.assignments[userID]
	for _, name := range roleNames {
		if _, ok := s.roles[name]; !ok {
			return fmt.Errorf("%w: role %s", ErrNotFound, name)
		}
		if !containsString(current, name) {
			current = append(current, name)
		}
	}
	s.assignments[userID] = current
	return nil
}

func (s *MemoryStore) Roles(_ context.Context, userID string) ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := s.assignments[userID]
	out := make([]Role, 0, len(names))
	for _, name := range names {
		r := s.roles[name]
		r.Permissions = append([]Permission(nil), r.Permissions...)
		out = append(out, r)
	}
	return out, nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
