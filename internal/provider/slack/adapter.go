// Package slack implements the provider adapter for Slack workspaces
// using the Web API (oauth.v2.access, conversations.list,
// conversations.history) with cursor pagination.
package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/draftdesk/chatscan/internal/provider"
)

const (
	providerName = "slack"

	defaultBaseURL      = "https://slack.com/api"
	defaultAuthorizeURL = "https://slack.com/oauth/v2/authorize"
	defaultTimeout      = 15 * time.Second

	// Web API tier 3 methods allow roughly 50 requests per minute.
	defaultRateLimit = 4
	defaultBurst     = 4

	// Scopes cover channel listing, history reads and user display names.
	botScopes = "channels:read,groups:read,channels:history,groups:history,users:read"
)

// Config holds the Slack OAuth app settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	BaseURL      string // override for tests; defaults to the Slack Web API root
	PageSize     int
}

// Adapter is the Slack provider adapter.
type Adapter struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter

	// user id -> display name, resolved lazily via users.info
	mu    sync.Mutex
	users map[string]string
}

// New creates a Slack adapter.
func New(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return &Adapter{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		users:   make(map[string]string),
	}
}

// Name returns the provider id.
func (a *Adapter) Name() string { return providerName }

// AuthorizationURL builds the OAuth v2 consent URL.
func (a *Adapter) AuthorizationURL(state string) string {
	q := url.Values{}
	q.Set("client_id", a.cfg.ClientID)
	q.Set("scope", botScopes)
	q.Set("redirect_uri", a.cfg.RedirectURL)
	q.Set("state", state)
	return defaultAuthorizeURL + "?" + q.Encode()
}

// apiEnvelope is the ok/error pair every Web API response carries.
type apiEnvelope struct {
	OK  bool   `json:"ok"`
	Err string `json:"error"`
}

func (e apiEnvelope) status() (bool, string) { return e.OK, e.Err }

// oauthResponse is the oauth.v2.access response envelope.
type oauthResponse struct {
	apiEnvelope
	AccessToken  string `json:"access_token"` // bot token (xoxb-...)
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Team        struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
	AuthedUser struct {
		ID          string `json:"id"`
		AccessToken string `json:"access_token"`
	} `json:"authed_user"`
}

// ExchangeCode exchanges an authorization code for workspace tokens.
// Codes are single-use, so a non-success response is terminal.
func (a *Adapter) ExchangeCode(ctx context.Context, code string) (*provider.Grant, error) {
	form := url.Values{}
	form.Set("client_id", a.cfg.ClientID)
	form.Set("client_secret", a.cfg.ClientSecret)
	form.Set("code", code)
	if a.cfg.RedirectURL != "" {
		form.Set("redirect_uri", a.cfg.RedirectURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.cfg.BaseURL+"/oauth.v2.access", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &provider.AuthExchangeError{Provider: providerName, Reason: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &provider.AuthExchangeError{Provider: providerName, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &provider.AuthExchangeError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Reason:     "unexpected status from oauth.v2.access",
		}
	}

	var out oauthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &provider.AuthExchangeError{Provider: providerName, Reason: "decoding response: " + err.Error()}
	}
	if !out.OK {
		return nil, &provider.AuthExchangeError{Provider: providerName, Reason: out.Err}
	}

	grant := &provider.Grant{
		AccessToken:   out.AuthedUser.AccessToken,
		RefreshToken:  out.RefreshToken,
		BotToken:      out.AccessToken,
		WorkspaceID:   out.Team.ID,
		WorkspaceName: out.Team.Name,
	}
	if out.ExpiresIn > 0 {
		grant.ExpiresAt = time.Now().UTC().Add(time.Duration(out.ExpiresIn) * time.Second)
	}
	return grant, nil
}

type channelsResponse struct {
	apiEnvelope
	Channels []struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		IsChannel  bool   `json:"is_channel"`
		IsPrivate  bool   `json:"is_private"`
		IsArchived bool   `json:"is_archived"`
	} `json:"channels"`
	Metadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

// ListChannels lists public and private conversations. Archived channels
// are returned but not selectable.
func (a *Adapter) ListChannels(ctx context.Context, creds provider.Credentials) ([]provider.Channel, error) {
	var channels []provider.Channel
	cursor := ""

	// Cursor pagination, capped the same way message fetching is.
	for page := 0; page < maxPages(1000, a.cfg.PageSize); page++ {
		q := url.Values{}
		q.Set("types", "public_channel,private_channel")
		q.Set("limit", strconv.Itoa(a.cfg.PageSize))
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var out channelsResponse
		if err := a.get(ctx, creds, "conversations.list", q, &out); err != nil {
			return nil, err
		}

		for _, ch := range out.Channels {
			kind := provider.KindPublic
			if ch.IsPrivate {
				kind = provider.KindPrivate
			}
			channels = append(channels, provider.Channel{
				ID:         ch.ID,
				Name:       ch.Name,
				Kind:       kind,
				Selectable: !ch.IsArchived,
			})
		}

		cursor = out.Metadata.NextCursor
		if cursor == "" {
			break
		}
	}

	return channels, nil
}

type historyResponse struct {
	apiEnvelope
	Messages []struct {
		Type    string `json:"type"`
		Subtype string `json:"subtype"`
		User    string `json:"user"`
		BotID   string `json:"bot_id"`
		Text    string `json:"text"`
		TS      string `json:"ts"`
	} `json:"messages"`
	HasMore  bool `json:"has_more"`
	Metadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

// FetchMessages pages conversations.history up to limit. A failed page is
// not retried; messages already fetched are returned with the error.
func (a *Adapter) FetchMessages(ctx context.Context, creds provider.Credentials, channelID string, limit int) ([]provider.Message, error) {
	var messages []provider.Message
	cursor := ""

	for page := 0; page < maxPages(limit, a.cfg.PageSize); page++ {
		pageSize := a.cfg.PageSize
		if remaining := limit - len(messages); remaining < pageSize {
			pageSize = remaining
		}
		if pageSize <= 0 {
			break
		}

		q := url.Values{}
		q.Set("channel", channelID)
		q.Set("limit", strconv.Itoa(pageSize))
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var out historyResponse
		if err := a.get(ctx, creds, "conversations.history", q, &out); err != nil {
			return messages, err
		}

		for _, m := range out.Messages {
			if m.Type != "message" || m.Subtype != "" || m.BotID != "" {
				continue
			}
			text := strings.TrimSpace(m.Text)
			if text == "" {
				continue
			}
			messages = append(messages, provider.Message{
				ID:        m.TS,
				ChannelID: channelID,
				Author:    a.displayName(ctx, creds, m.User),
				Text:      text,
				Timestamp: parseSlackTS(m.TS),
				Provider:  providerName,
			})
		}

		cursor = out.Metadata.NextCursor
		if !out.HasMore || cursor == "" {
			break
		}
	}

	return messages, nil
}

type userInfoResponse struct {
	apiEnvelope
	User struct {
		Name    string `json:"name"`
		Profile struct {
			DisplayName string `json:"display_name"`
			RealName    string `json:"real_name"`
		} `json:"profile"`
	} `json:"user"`
}

// displayName resolves a user id through users.info with a process-local
// cache. Resolution failures fall back to the raw id.
func (a *Adapter) displayName(ctx context.Context, creds provider.Credentials, userID string) string {
	if userID == "" {
		return "unknown"
	}

	a.mu.Lock()
	if name, ok := a.users[userID]; ok {
		a.mu.Unlock()
		return name
	}
	a.mu.Unlock()

	q := url.Values{}
	q.Set("user", userID)

	var out userInfoResponse
	if err := a.get(ctx, creds, "users.info", q, &out); err != nil {
		return userID
	}

	name := out.User.Profile.DisplayName
	if name == "" {
		name = out.User.Profile.RealName
	}
	if name == "" {
		name = out.User.Name
	}
	if name == "" {
		name = userID
	}

	a.mu.Lock()
	a.users[userID] = name
	a.mu.Unlock()
	return name
}

// get performs a rate-limited Web API GET and decodes the envelope,
// translating transport, HTTP and ok:false failures into APIError.
func (a *Adapter) get(ctx context.Context, creds provider.Credentials, method string, q url.Values, out interface{ status() (bool, string) }) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return &provider.APIError{Provider: providerName, Op: method, Reason: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.cfg.BaseURL+"/"+method+"?"+q.Encode(), nil)
	if err != nil {
		return &provider.APIError{Provider: providerName, Op: method, Reason: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+creds.APIToken())

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &provider.APIError{Provider: providerName, Op: method, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &provider.APIError{
			Provider:   providerName,
			Op:         method,
			StatusCode: resp.StatusCode,
			Reason:     strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &provider.APIError{Provider: providerName, Op: method, Reason: "decoding response: " + err.Error()}
	}

	if ok, reason := out.status(); !ok {
		return &provider.APIError{Provider: providerName, Op: method, Reason: reason}
	}

	return nil
}

// parseSlackTS converts a Slack "seconds.micros" timestamp to UTC time.
func parseSlackTS(ts string) time.Time {
	sec, frac, _ := strings.Cut(ts, ".")
	secs, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Time{}
	}
	var nanos int64
	if frac != "" {
		micros, err := strconv.ParseInt(frac, 10, 64)
		if err == nil {
			nanos = micros * int64(time.Microsecond)
		}
	}
	return time.Unix(secs, nanos).UTC()
}

// maxPages bounds the pagination loop so a misbehaving cursor cannot spin
// past the per-channel cap.
func maxPages(limit, pageSize int) int {
	if pageSize <= 0 {
		return 1
	}
	pages := (limit + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}
	return pages
}

var _ provider.Adapter = (*Adapter)(nil)
