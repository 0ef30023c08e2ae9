package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/draftdesk/chatscan/internal/connection"
	"github.com/draftdesk/chatscan/internal/importer"
	"github.com/draftdesk/chatscan/internal/logging"
	"github.com/draftdesk/chatscan/internal/project"
	"github.com/draftdesk/chatscan/internal/provider"
	"github.com/draftdesk/chatscan/internal/scan"
)

// tenantHeader carries the caller's tenant id on every API request.
const tenantHeader = "X-Tenant-ID"

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string   `json:"status"`
	Providers []string `json:"providers"`
}

// AuthorizationURLResponse is the response body for GET /api/v1/connect/:provider.
type AuthorizationURLResponse struct {
	Provider         string `json:"provider"`
	AuthorizationURL string `json:"authorization_url"`
}

// ConnectCallbackRequest is the request body for POST /api/v1/connect/:provider/callback.
type ConnectCallbackRequest struct {
	Code string `json:"code"`
}

// ConnectionResponse describes one workspace connection.
type ConnectionResponse struct {
	ID            string `json:"id"`
	Provider      string `json:"provider"`
	WorkspaceID   string `json:"workspace_id"`
	WorkspaceName string `json:"workspace_name"`
	CreatedAt     string `json:"created_at"`
}

// ChannelsResponse is the response body for GET /api/v1/connections/:id/channels.
type ChannelsResponse struct {
	ConnectionID string             `json:"connection_id"`
	Channels     []provider.Channel `json:"channels"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Providers: s.registry.Names(),
	})
}

func (s *Server) handleAuthorizationURL(c echo.Context) error {
	adapter, err := s.registry.Get(c.Param("provider"))
	if err != nil {
		return s.fail(c, err)
	}

	state := c.QueryParam("state")
	if state == "" {
		return s.fail(c, scan.NewValidationError("state", "required"))
	}

	return c.JSON(http.StatusOK, AuthorizationURLResponse{
		Provider:         adapter.Name(),
		AuthorizationURL: adapter.AuthorizationURL(state),
	})
}

func (s *Server) handleConnectCallback(c echo.Context) error {
	tenantID, err := s.tenantID(c)
	if err != nil {
		return s.fail(c, err)
	}
	adapter, err := s.registry.Get(c.Param("provider"))
	if err != nil {
		return s.fail(c, err)
	}

	var req ConnectCallbackRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, scan.NewValidationError("body", "invalid request body"))
	}
	if req.Code == "" {
		return s.fail(c, scan.NewValidationError("code", "required"))
	}

	ctx := logging.WithTenantID(c.Request().Context(), tenantID)

	grant, err := adapter.ExchangeCode(ctx, req.Code)
	if err != nil {
		return s.fail(c, err)
	}

	conn, err := connection.New(tenantID, adapter.Name(), *grant)
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.conns.Save(ctx, conn); err != nil {
		return s.fail(c, err)
	}

	s.logger.Info(ctx, "connection established",
		zap.String("provider", conn.Provider),
		zap.String("workspace", conn.WorkspaceName))

	return c.JSON(http.StatusCreated, connectionResponse(conn))
}

func (s *Server) handleListConnections(c echo.Context) error {
	tenantID, err := s.tenantID(c)
	if err != nil {
		return s.fail(c, err)
	}

	conns, err := s.conns.List(c.Request().Context(), tenantID)
	if err != nil {
		return s.fail(c, err)
	}

	out := make([]ConnectionResponse, 0, len(conns))
	for _, conn := range conns {
		out = append(out, connectionResponse(conn))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleListChannels(c echo.Context) error {
	tenantID, err := s.tenantID(c)
	if err != nil {
		return s.fail(c, err)
	}

	ctx := logging.WithTenantID(c.Request().Context(), tenantID)

	conn, err := s.conns.Get(ctx, tenantID, c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	adapter, err := s.registry.Get(conn.Provider)
	if err != nil {
		return s.fail(c, err)
	}

	channels, err := adapter.ListChannels(ctx, conn.Credentials())
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, ChannelsResponse{
		ConnectionID: conn.ID,
		Channels:     channels,
	})
}

func (s *Server) handleDisconnect(c echo.Context) error {
	tenantID, err := s.tenantID(c)
	if err != nil {
		return s.fail(c, err)
	}

	if err := s.conns.Delete(c.Request().Context(), tenantID, c.Param("id")); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleStartScan(c echo.Context) error {
	tenantID, err := s.tenantID(c)
	if err != nil {
		return s.fail(c, err)
	}

	var in scan.StartInput
	if err := c.Bind(&in); err != nil {
		return s.fail(c, scan.NewValidationError("body", "invalid request body"))
	}
	in.TenantID = tenantID

	ctx := logging.WithTenantID(c.Request().Context(), tenantID)

	session, err := s.scans.Start(ctx, in)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, session)
}

func (s *Server) handleGetScan(c echo.Context) error {
	tenantID, err := s.tenantID(c)
	if err != nil {
		return s.fail(c, err)
	}

	session, err := s.scans.Get(c.Request().Context(), tenantID, c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

func (s *Server) handleCommitImport(c echo.Context) error {
	tenantID, err := s.tenantID(c)
	if err != nil {
		return s.fail(c, err)
	}

	var in importer.CommitInput
	if err := c.Bind(&in); err != nil {
		return s.fail(c, scan.NewValidationError("body", "invalid request body"))
	}
	in.TenantID = tenantID
	in.SessionID = c.Param("id")

	ctx := logging.WithTenantID(c.Request().Context(), tenantID)

	result, err := s.resolver.Commit(ctx, in)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleRecoverScan(c echo.Context) error {
	tenantID, err := s.tenantID(c)
	if err != nil {
		return s.fail(c, err)
	}

	session, err := s.scans.Recover(c.Request().Context(), tenantID, c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

func (s *Server) tenantID(c echo.Context) (string, error) {
	tenantID := c.Request().Header.Get(tenantHeader)
	if tenantID == "" {
		return "", scan.NewValidationError(tenantHeader, "required header")
	}
	return tenantID, nil
}

// fail converts a pipeline error into the HTTP status it maps to.
func (s *Server) fail(c echo.Context, err error) error {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "request failed", zap.Error(err))
	}
	return echo.NewHTTPError(status, err.Error())
}

// statusForError maps the pipeline error taxonomy onto HTTP statuses:
// validation 400, auth exchange 401, tenant mismatch 403, missing records
// 404, state conflicts 409, upstream provider failures 502.
func statusForError(err error) int {
	var verr *scan.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest
	}
	var aerr *provider.AuthExchangeError
	if errors.As(err, &aerr) {
		return http.StatusUnauthorized
	}
	switch {
	case errors.Is(err, connection.ErrForbidden), errors.Is(err, project.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, connection.ErrNotFound),
		errors.Is(err, scan.ErrSessionNotFound),
		errors.Is(err, project.ErrProjectNotFound),
		errors.Is(err, provider.ErrUnknownProvider):
		return http.StatusNotFound
	case errors.Is(err, scan.ErrInvalidState):
		return http.StatusConflict
	}
	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func connectionResponse(conn *connection.Connection) ConnectionResponse {
	return ConnectionResponse{
		ID:            conn.ID,
		Provider:      conn.Provider,
		WorkspaceID:   conn.WorkspaceID,
		WorkspaceName: conn.WorkspaceName,
		CreatedAt:     conn.CreatedAt.Format(time.RFC3339),
	}
}
