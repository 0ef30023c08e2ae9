package project

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store provides tenant-scoped project and task storage.
type Store interface {
	// EnsureInbox returns the tenant's inbox project, creating it on
	// first use.
	EnsureInbox(ctx context.Context, tenantID string) (*Project, error)

	// Create creates a named project for the tenant.
	Create(ctx context.Context, tenantID, name string) (*Project, error)

	// Get retrieves a project by ID, enforcing tenant ownership.
	Get(ctx context.Context, tenantID, id string) (*Project, error)

	// List returns all projects owned by the tenant.
	List(ctx context.Context, tenantID string) ([]*Project, error)

	// AddTask appends a task to a project.
	AddTask(ctx context.Context, tenantID, projectID string, task *Task) error

	// Tasks returns a project's tasks in insertion order.
	Tasks(ctx context.Context, tenantID, projectID string) ([]*Task, error)
}

// store implements Store with in-memory storage.
type store struct {
	mu       sync.RWMutex
	projects map[string]*Project // id -> project
	inboxes  map[string]string   // tenant id -> inbox project id
	tasks    map[string][]*Task  // project id -> tasks
}

// NewStore creates a project store with in-memory storage.
func NewStore() Store {
	return &store{
		projects: make(map[string]*Project),
		inboxes:  make(map[string]string),
		tasks:    make(map[string][]*Task),
	}
}

// EnsureInbox returns the tenant's inbox project, creating it on first use.
func (s *store) EnsureInbox(ctx context.Context, tenantID string) (*Project, error) {
	if tenantID == "" {
		return nil, ErrEmptyTenantID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.inboxes[tenantID]; ok {
		return s.projects[id], nil
	}

	inbox, err := newProject(tenantID, InboxName, true)
	if err != nil {
		return nil, err
	}
	s.projects[inbox.ID] = inbox
	s.inboxes[tenantID] = inbox.ID
	return inbox, nil
}

// Create creates a named project for the tenant.
func (s *store) Create(ctx context.Context, tenantID, name string) (*Project, error) {
	p, err := newProject(tenantID, name, false)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.projects[p.ID] = p
	return p, nil
}

// Get retrieves a project by ID, enforcing tenant ownership.
func (s *store) Get(ctx context.Context, tenantID, id string) (*Project, error) {
	if id == "" {
		return nil, ErrEmptyProjectID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lookup(tenantID, id)
}

// List returns all projects owned by the tenant.
func (s *store) List(ctx context.Context, tenantID string) ([]*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var projects []*Project
	for _, p := range s.projects {
		if p.TenantID == tenantID {
			projects = append(projects, p)
		}
	}
	return projects, nil
}

// AddTask appends a task to a project.
func (s *store) AddTask(ctx context.Context, tenantID, projectID string, task *Task) error {
	if task.Title == "" {
		return ErrEmptyTaskTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.lookup(tenantID, projectID)
	if err != nil {
		return err
	}

	task.ProjectID = p.ID
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	s.tasks[p.ID] = append(s.tasks[p.ID], task)
	return nil
}

// Tasks returns a project's tasks in insertion order.
func (s *store) Tasks(ctx context.Context, tenantID, projectID string) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := s.lookup(tenantID, projectID)
	if err != nil {
		return nil, err
	}

	tasks := make([]*Task, len(s.tasks[p.ID]))
	copy(tasks, s.tasks[p.ID])
	return tasks, nil
}

// lookup resolves a project under the caller-held lock.
func (s *store) lookup(tenantID, id string) (*Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	if p.TenantID != tenantID {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, id)
	}
	return p, nil
}
