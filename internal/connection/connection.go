package connection

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/draftdesk/chatscan/internal/provider"
)

// Common errors.
var (
	ErrNotFound         = errors.New("connection not found")
	ErrForbidden        = errors.New("connection belongs to another tenant")
	ErrEmptyTenantID    = errors.New("tenant ID cannot be empty")
	ErrEmptyConnID      = errors.New("connection ID cannot be empty")
	ErrEmptyProvider    = errors.New("provider cannot be empty")
	ErrEmptyWorkspaceID = errors.New("workspace ID cannot be empty")
)

// Connection is a tenant's authorized link to one chat workspace. The
// credentials inside are the only copy; they never leave this package
// except through Credentials().
type Connection struct {
	// ID is the unique connection identifier (UUID).
	ID string `json:"id"`

	// TenantID scopes the connection to its owning tenant.
	TenantID string `json:"tenant_id"`

	// Provider names the chat provider adapter ("slack", "discord").
	Provider string `json:"provider"`

	// WorkspaceID is the provider-side workspace or guild identifier.
	WorkspaceID string `json:"workspace_id"`

	// WorkspaceName is the human-readable workspace name.
	WorkspaceName string `json:"workspace_name"`

	// CreatedAt is when the grant was exchanged.
	CreatedAt time.Time `json:"created_at"`

	// refreshMu serializes token refresh so two concurrent scans never
	// race into refreshing the same grant twice.
	refreshMu sync.Mutex
	grant     provider.Grant
}

// New creates a connection from a completed authorization grant.
func New(tenantID, providerName string, grant provider.Grant) (*Connection, error) {
	if tenantID == "" {
		return nil, ErrEmptyTenantID
	}
	if providerName == "" {
		return nil, ErrEmptyProvider
	}
	if grant.WorkspaceID == "" {
		return nil, ErrEmptyWorkspaceID
	}

	return &Connection{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		Provider:      providerName,
		WorkspaceID:   grant.WorkspaceID,
		WorkspaceName: grant.WorkspaceName,
		CreatedAt:     time.Now(),
		grant:         grant,
	}, nil
}

// Credentials returns the API credentials for provider calls on this
// connection.
func (c *Connection) Credentials() provider.Credentials {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	return provider.Credentials{
		AccessToken: c.grant.AccessToken,
		BotToken:    c.grant.BotToken,
		WorkspaceID: c.grant.WorkspaceID,
	}
}

// NeedsRefresh reports whether the grant has expired and carries a refresh
// token to renew it with.
func (c *Connection) NeedsRefresh(now time.Time) bool {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	return c.grant.Expired(now) && c.grant.RefreshToken != ""
}

// Refresh renews the grant under the connection's refresh lock. A caller
// that loses the race to the lock re-checks expiry and skips the second
// refresh, so concurrent scans produce exactly one token exchange.
func (c *Connection) Refresh(now time.Time, fn func(provider.Grant) (*provider.Grant, error)) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if !c.grant.Expired(now) {
		return nil
	}
	renewed, err := fn(c.grant)
	if err != nil {
		return err
	}
	c.grant = *renewed
	return nil
}
