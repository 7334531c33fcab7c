package auth

import (
	"strings"
	"time"
)

// User is the persisted account. PasswordHash is only populated by
// FindByEmailWithPasswordHash.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the externally visible projection of User.
type PublicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ToPublicUser strips the credential material from u.
func ToPublicUser(u User) PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Role groups permissions.
type Role struct {
	ID          string
	Name        string
	Permissions []Permission
}

// Permission is a fine-grained capability such as CREATE_POETRY.
type Permission struct {
	ID   string
	Name string
}

// RoleNames returns role names in input order.
func RoleNames(roles []Role) []string {
	if len(roles) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.Name)
	}
	return out
}

// PermissionNames flattens, dedupes and sorts the permissions of roles.
func PermissionNames(roles []Role) []string {
	set := make(map[string]struct{})
	for _, r := range roles {
		for _, p := range r.Permissions {
			name := strings.TrimSpace(p.Name)
			if name == "" {
				continue
			}
			set[name] = struct{}{}
		}
	}
	return sortedKeys(set)
}
