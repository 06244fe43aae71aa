package memory

import (
	"context"
	"sync"

	"arena-service/internal/domain"
)

// StaticUserDirectory resolves display names from a fixed map, falling back
// to the raw user ID. Stands in for the identity service this module treats
// as an external collaborator.
type StaticUserDirectory struct {
	mu    sync.RWMutex
	users map[string]domain.UserIdentity
}

func NewStaticUserDirectory(users map[string]domain.UserIdentity) *StaticUserDirectory {
	if users == nil {
		users = make(map[string]domain.UserIdentity)
	}
	return &StaticUserDirectory{users: users}
}

func (d *StaticUserDirectory) Resolve(_ context.Context, userID string) (domain.UserIdentity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if identity, ok := d.users[userID]; ok {
		return identity, nil
	}
	return domain.UserIdentity{UserID: userID, DisplayName: userID}, nil
}
