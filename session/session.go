// session/session.go
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Role is the part a connection plays in the game.
type Role string

const (
	RoleGuard       Role = "guard"
	RoleAnimatronic Role = "animatronic"
	RoleAdmin       Role = "admin"
)

// DefaultDisplayName is used when a client authenticates without a name.
const DefaultDisplayName = "Anonymous"

var (
	ErrRoleConflict      = errors.New("admin role already taken")
	ErrAlreadyRegistered = errors.New("connection already registered")
	ErrNotFound          = errors.New("participant not found")
	ErrInvalidRole       = errors.New("invalid role")
	ErrEmptyConnectionID = errors.New("empty connection id")
)

// ParseRole validates a role literal sent by a client.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleGuard, RoleAnimatronic, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// Participant 一个已认证连接的身份记录
type Participant struct {
	ConnectionID  string    `json:"id"`
	DisplayName   string    `json:"name"`
	Role          Role      `json:"role"`
	CharacterType string    `json:"animatronic_type,omitempty"`
	JoinedAt      time.Time `json:"joined_at"`
}

// Registry maps connection ids to participants and owns the admin slot.
type Registry struct {
	participants map[string]*Participant
	order        []string // insertion order of connection ids
	admin        string
	mutex        sync.RWMutex
	now          func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		participants: make(map[string]*Participant),
		now:          time.Now,
	}
}

// Register creates a participant for connectionID. An admin registration fails
// while another connection holds the admin slot.
func (r *Registry) Register(connectionID string, role Role, displayName, characterType string) (Participant, error) {
	if connectionID == "" {
		return Participant{}, ErrEmptyConnectionID
	}
	switch role {
	case RoleGuard, RoleAnimatronic, RoleAdmin:
	default:
		return Participant{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.participants[connectionID]; exists {
		return Participant{}, ErrAlreadyRegistered
	}
	if role == RoleAdmin && r.admin != "" {
		return Participant{}, ErrRoleConflict
	}

	name := strings.TrimSpace(displayName)
	if name == "" {
		name = DefaultDisplayName
	}
	if role != RoleAnimatronic {
		characterType = ""
	}

	p := &Participant{
		ConnectionID:  connectionID,
		DisplayName:   name,
		Role:          role,
		CharacterType: characterType,
		JoinedAt:      r.now(),
	}
	r.participants[connectionID] = p
	r.order = append(r.order, connectionID)
	if role == RoleAdmin {
		r.admin = connectionID
	}
	return *p, nil
}

// Unregister removes and returns the participant, freeing the admin slot if it held it.
func (r *Registry) Unregister(connectionID string) (Participant, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	p, exists := r.participants[connectionID]
	if !exists {
		return Participant{}, ErrNotFound
	}
	delete(r.participants, connectionID)
	for i, id := range r.order {
		if id == connectionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.admin == connectionID {
		r.admin = ""
	}
	return *p, nil
}

func (r *Registry) Lookup(connectionID string) (Participant, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	p, exists := r.participants[connectionID]
	if !exists {
		return Participant{}, ErrNotFound
	}
	return *p, nil
}

func (r *Registry) IsAdmin(connectionID string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return connectionID != "" && r.admin == connectionID
}

// Admin returns the connection id holding the admin slot.
func (r *Registry) Admin() (string, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.admin, r.admin != ""
}

// List returns participants in insertion order.
func (r *Registry) List() []Participant {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]Participant, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, *r.participants[id])
	}
	return result
}

func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.participants)
}
