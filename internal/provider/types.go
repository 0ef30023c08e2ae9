// Package provider defines the contract every chat platform adapter
// implements: authorization URL building, OAuth code exchange, channel
// listing, and bounded paginated message history fetching. Callers depend
// only on the Adapter interface; concrete variants live in subpackages.
package provider

import (
	"context"
	"time"
)

// ChannelKind classifies a provider channel by what it carries.
type ChannelKind string

const (
	KindPublic       ChannelKind = "public"
	KindPrivate      ChannelKind = "private"
	KindText         ChannelKind = "text"
	KindAnnouncement ChannelKind = "announcement"
)

// Channel is a provider channel visible to a connection.
type Channel struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Kind       ChannelKind `json:"kind"`
	Selectable bool        `json:"selectable"`
}

// Message is the provider-agnostic representation of one chat message.
// Immutable once produced.
type Message struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	Author      string    `json:"author"`
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"` // UTC
	Provider    string    `json:"provider"`
}

// Grant is the result of a successful OAuth code exchange.
type Grant struct {
	AccessToken   string
	RefreshToken  string
	BotToken      string
	WorkspaceID   string
	WorkspaceName string
	ExpiresAt     time.Time // zero when the provider issues non-expiring tokens
}

// Expired reports whether the grant's access token has passed its expiry.
// Grants without an expiry never expire.
func (g Grant) Expired(now time.Time) bool {
	return !g.ExpiresAt.IsZero() && !now.Before(g.ExpiresAt)
}

// Credentials carries the tokens an adapter needs for API calls, plus the
// provider workspace (Slack team, Discord guild) they are scoped to.
type Credentials struct {
	AccessToken string
	BotToken    string
	WorkspaceID string
}

// APIToken returns the token used for listing and history calls.
// Providers issue a dedicated bot token; the user access token is the
// fallback.
func (c Credentials) APIToken() string {
	if c.BotToken != "" {
		return c.BotToken
	}
	return c.AccessToken
}

// Adapter is the per-platform client contract.
//
// FetchMessages paginates transparently up to limit using the provider's
// native pagination primitive and stops early at end of history. A failed
// page is not retried within the call; messages already fetched are
// returned alongside the error. Bot-authored and empty-text messages are
// excluded.
type Adapter interface {
	// Name returns the provider id ("slack", "discord").
	Name() string

	// AuthorizationURL builds the OAuth consent URL embedding the
	// caller-supplied opaque anti-forgery state token.
	AuthorizationURL(state string) string

	// ExchangeCode exchanges an authorization code for tokens. Codes are
	// single-use; the call never retries.
	ExchangeCode(ctx context.Context, code string) (*Grant, error)

	// ListChannels returns message-bearing channels only; voice, category
	// and system channels are excluded by provider-specific type codes.
	ListChannels(ctx context.Context, creds Credentials) ([]Channel, error)

	// FetchMessages returns up to limit normalized messages from one
	// channel, newest first as delivered by the provider.
	FetchMessages(ctx context.Context, creds Credentials, channelID string, limit int) ([]Message, error)
}

// GrantRefresher is implemented by adapters whose access tokens expire and
// can be renewed with a refresh token.
type GrantRefresher interface {
	// RefreshGrant exchanges the grant's refresh token for fresh tokens.
	// Fields the provider does not reissue keep their previous values.
	RefreshGrant(ctx context.Context, grant Grant) (*Grant, error)
}
