package directory

import "context"

// Static is a map-based Directory for testing and simple deployments.
// Safe for concurrent use (read-only after creation).
type Static struct {
	users map[string]User
}

// Ensure Static implements Directory.
var _ Directory = (*Static)(nil)

// NewStatic creates a Static directory from a map of user ID to User.
// The map is copied to prevent external mutation.
func NewStatic(users map[string]User) *Static {
	m := make(map[string]User, len(users))
	for k, v := range users {
		m[k] = v
	}
	return &Static{users: m}
}

// QueryUsersWithEmail returns every user that has a non-empty email.
func (s *Static) QueryUsersWithEmail(_ context.Context, _ string) ([]User, error) {
	var out []User
	for _, u := range s.users {
		if u.Email != "" {
			out = append(out, u)
		}
	}
	return out, nil
}

// Lookup returns the user with the given ID.
func (s *Static) Lookup(_ context.Context, id, _ string) (*User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}
