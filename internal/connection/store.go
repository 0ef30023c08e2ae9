package connection

import (
	"context"
	"fmt"
	"sync"
)

// Store provides tenant-scoped CRUD operations for connections.
type Store interface {
	// Save stores a new connection.
	Save(ctx context.Context, conn *Connection) error

	// Get retrieves a connection by ID, enforcing tenant ownership.
	Get(ctx context.Context, tenantID, id string) (*Connection, error)

	// List returns all connections owned by the tenant.
	List(ctx context.Context, tenantID string) ([]*Connection, error)

	// Delete removes a connection by ID. Deleting an already removed
	// connection is not an error.
	Delete(ctx context.Context, tenantID, id string) error
}

// store implements Store with in-memory storage.
type store struct {
	mu    sync.RWMutex
	conns map[string]*Connection // id -> connection
}

// NewStore creates a connection store with in-memory storage.
func NewStore() Store {
	return &store{conns: make(map[string]*Connection)}
}

// Save stores a new connection.
func (s *store) Save(ctx context.Context, conn *Connection) error {
	if conn.ID == "" {
		return ErrEmptyConnID
	}
	if conn.TenantID == "" {
		return ErrEmptyTenantID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.conns[conn.ID] = conn
	return nil
}

// Get retrieves a connection by ID, enforcing tenant ownership.
func (s *store) Get(ctx context.Context, tenantID, id string) (*Connection, error) {
	if id == "" {
		return nil, ErrEmptyConnID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	conn, ok := s.conns[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if conn.TenantID != tenantID {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, id)
	}

	return conn, nil
}

// List returns all connections owned by the tenant.
func (s *store) List(ctx context.Context, tenantID string) ([]*Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var conns []*Connection
	for _, c := range s.conns {
		if c.TenantID == tenantID {
			conns = append(conns, c)
		}
	}
	return conns, nil
}

// Delete removes a connection by ID. A connection owned by another tenant
// is reported as forbidden; one already gone is a no-op.
func (s *store) Delete(ctx context.Context, tenantID, id string) error {
	if id == "" {
		return ErrEmptyConnID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.conns[id]
	if !ok {
		return nil
	}
	if conn.TenantID != tenantID {
		return fmt.Errorf("%w: %s", ErrForbidden, id)
	}

	delete(s.conns, id)
	return nil
}
