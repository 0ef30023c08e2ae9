// Package discord implements the provider adapter for Discord guilds.
// Authorization uses the standard OAuth2 code flow (with guild metadata on
// the token response); history fetching walks the before-id pagination of
// the channel messages endpoint.
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/draftdesk/chatscan/internal/provider"
)

const (
	providerName = "discord"

	defaultAPIBaseURL   = "https://discord.com/api/v10"
	defaultAuthorizeURL = "https://discord.com/oauth2/authorize"
	defaultTimeout      = 15 * time.Second

	// Global REST limit is 50 requests per second; stay well under it.
	defaultRateLimit = 10
	defaultBurst     = 10

	// Channel type codes that carry messages.
	channelTypeText         = 0
	channelTypeAnnouncement = 5

	// Permissions requested for the bot: View Channels + Read Message History.
	botPermissions = "66560"
)

// Config holds the Discord OAuth app settings.
type Config struct {
	ClientID     string
	ClientSecret string
	// BotToken is the application's bot token, used for guild API calls
	// once the bot has been added during authorization.
	BotToken    string
	RedirectURL string
	BaseURL     string // override for tests; defaults to the Discord API root
	PageSize    int
}

// Adapter is the Discord provider adapter.
type Adapter struct {
	cfg        Config
	oauth      *oauth2.Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a Discord adapter.
func New(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAPIBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}

	return &Adapter{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"bot", "identify", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   defaultAuthorizeURL,
				TokenURL:  cfg.BaseURL + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}
}

// Name returns the provider id.
func (a *Adapter) Name() string { return providerName }

// AuthorizationURL builds the consent URL adding the bot permission set.
func (a *Adapter) AuthorizationURL(state string) string {
	return a.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("permissions", botPermissions))
}

// ExchangeCode exchanges an authorization code for tokens. Discord attaches
// the joined guild to the token response when the bot scope is granted.
func (a *Adapter) ExchangeCode(ctx context.Context, code string) (*provider.Grant, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	tok, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, &provider.AuthExchangeError{
				Provider:   providerName,
				StatusCode: retrieveErr.Response.StatusCode,
				Reason:     strings.TrimSpace(string(retrieveErr.Body)),
			}
		}
		return nil, &provider.AuthExchangeError{Provider: providerName, Reason: err.Error()}
	}

	grant := &provider.Grant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		BotToken:     a.cfg.BotToken,
		ExpiresAt:    tok.Expiry.UTC(),
	}

	if guild, ok := tok.Extra("guild").(map[string]interface{}); ok {
		if id, ok := guild["id"].(string); ok {
			grant.WorkspaceID = id
		}
		if name, ok := guild["name"].(string); ok {
			grant.WorkspaceName = name
		}
	}
	if grant.WorkspaceID == "" {
		return nil, &provider.AuthExchangeError{
			Provider: providerName,
			Reason:   "token response carried no guild; was the bot scope granted?",
		}
	}

	return grant, nil
}

// RefreshGrant renews an expired access token with the grant's refresh
// token. The workspace binding and bot token carry over unchanged.
func (a *Adapter) RefreshGrant(ctx context.Context, grant provider.Grant) (*provider.Grant, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	src := a.oauth.TokenSource(ctx, &oauth2.Token{
		RefreshToken: grant.RefreshToken,
		Expiry:       grant.ExpiresAt,
	})
	tok, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, &provider.AuthExchangeError{
				Provider:   providerName,
				StatusCode: retrieveErr.Response.StatusCode,
				Reason:     strings.TrimSpace(string(retrieveErr.Body)),
			}
		}
		return nil, &provider.AuthExchangeError{Provider: providerName, Reason: err.Error()}
	}

	renewed := grant
	renewed.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		renewed.RefreshToken = tok.RefreshToken
	}
	renewed.ExpiresAt = tok.Expiry.UTC()
	return &renewed, nil
}

type guildChannel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type int    `json:"type"`
}

// ListChannels lists guild channels, keeping text and announcement types
// only. Voice, category and thread containers are excluded by type code.
func (a *Adapter) ListChannels(ctx context.Context, creds provider.Credentials) ([]provider.Channel, error) {
	if creds.WorkspaceID == "" {
		return nil, &provider.APIError{Provider: providerName, Op: "guild channels", Reason: "missing guild id"}
	}

	var raw []guildChannel
	if err := a.get(ctx, creds, "/guilds/"+creds.WorkspaceID+"/channels", nil, &raw); err != nil {
		return nil, err
	}

	channels := make([]provider.Channel, 0, len(raw))
	for _, ch := range raw {
		var kind provider.ChannelKind
		switch ch.Type {
		case channelTypeText:
			kind = provider.KindText
		case channelTypeAnnouncement:
			kind = provider.KindAnnouncement
		default:
			continue
		}
		channels = append(channels, provider.Channel{
			ID:         ch.ID,
			Name:       ch.Name,
			Kind:       kind,
			Selectable: true,
		})
	}

	return channels, nil
}

type channelMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Author    struct {
		Username   string `json:"username"`
		GlobalName string `json:"global_name"`
		Bot        bool   `json:"bot"`
	} `json:"author"`
}

// FetchMessages walks the messages endpoint newest-first, paging backwards
// with the before-id parameter up to limit. A failed page is not retried;
// messages already fetched are returned with the error.
func (a *Adapter) FetchMessages(ctx context.Context, creds provider.Credentials, channelID string, limit int) ([]provider.Message, error) {
	var messages []provider.Message
	before := ""

	for page := 0; page < maxPages(limit, a.cfg.PageSize); page++ {
		pageSize := a.cfg.PageSize
		if remaining := limit - len(messages); remaining < pageSize {
			pageSize = remaining
		}
		if pageSize <= 0 {
			break
		}

		q := url.Values{}
		q.Set("limit", strconv.Itoa(pageSize))
		if before != "" {
			q.Set("before", before)
		}

		var raw []channelMessage
		if err := a.get(ctx, creds, "/channels/"+channelID+"/messages", q, &raw); err != nil {
			return messages, err
		}
		if len(raw) == 0 {
			break
		}

		for _, m := range raw {
			text := strings.TrimSpace(m.Content)
			if m.Author.Bot || text == "" {
				continue
			}
			author := m.Author.GlobalName
			if author == "" {
				author = m.Author.Username
			}
			messages = append(messages, provider.Message{
				ID:        m.ID,
				ChannelID: channelID,
				Author:    author,
				Text:      text,
				Timestamp: m.Timestamp.UTC(),
				Provider:  providerName,
			})
		}

		// Page backwards from the oldest message we have seen.
		before = raw[len(raw)-1].ID
		if len(raw) < pageSize {
			break // end of history
		}
	}

	return messages, nil
}

// get performs a rate-limited bot-authenticated GET against the REST API.
func (a *Adapter) get(ctx context.Context, creds provider.Credentials, path string, q url.Values, out interface{}) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return &provider.APIError{Provider: providerName, Op: path, Reason: err.Error()}
	}

	u := a.cfg.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &provider.APIError{Provider: providerName, Op: path, Reason: err.Error()}
	}
	req.Header.Set("Authorization", "Bot "+creds.APIToken())

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &provider.APIError{Provider: providerName, Op: path, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &provider.APIError{
			Provider:   providerName,
			Op:         path,
			StatusCode: resp.StatusCode,
			Reason:     strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &provider.APIError{Provider: providerName, Op: path, Reason: "decoding response: " + err.Error()}
	}

	return nil
}

// maxPages bounds the pagination loop so a misbehaving before-id walk
// cannot spin past the per-channel cap.
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
