package project

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// InboxName is the reserved name of each tenant's implicit inbox project.
const InboxName = "Inbox"

// Common errors.
var (
	ErrProjectNotFound = errors.New("project not found")
	ErrForbidden       = errors.New("project belongs to another tenant")
	ErrEmptyTenantID   = errors.New("tenant ID cannot be empty")
	ErrEmptyName       = errors.New("project name cannot be empty")
	ErrEmptyProjectID  = errors.New("project ID cannot be empty")
	ErrEmptyTaskTitle  = errors.New("task title cannot be empty")
)

// Project is a named container for imported tasks, scoped to one tenant.
type Project struct {
	// ID is the unique project identifier (UUID).
	ID string `json:"id"`

	// TenantID scopes the project to its owning tenant.
	TenantID string `json:"tenant_id"`

	// Name is the human-readable project name.
	Name string `json:"name"`

	// Inbox marks the tenant's implicit default project.
	Inbox bool `json:"inbox"`

	// CreatedAt is when the project was created.
	CreatedAt time.Time `json:"created_at"`
}

// Task is one imported task record.
type Task struct {
	// ID carries the deterministic identifier assigned at extraction.
	ID string `json:"id"`

	// ProjectID is the owning project.
	ProjectID string `json:"project_id"`

	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`

	// Source* fields trace the task back to the chat message it came from.
	SourceProvider string `json:"source_provider"`
	SourceChannel  string `json:"source_channel,omitempty"`
	SourceAuthor   string `json:"source_author,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// newProject creates a project with a generated UUID.
func newProject(tenantID, name string, inbox bool) (*Project, error) {
	if tenantID == "" {
		return nil, ErrEmptyTenantID
	}
	if name == "" {
		return nil, ErrEmptyName
	}

	return &Project{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Name:      name,
		Inbox:     inbox,
		CreatedAt: time.Now(),
	}, nil
}
