package domain

import "time"

type UserType string

const (
	UserGuest         UserType = "guest"
	UserAuthenticated UserType = "authenticated"
)

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// GuestMessageLimit is the number of messages after which a guest session
// reports itself rate limited. The limit is advisory: enqueueing past it
// still succeeds, only the rate-limit query reports limited.
const GuestMessageLimit = 3

// ChatMessage is one immutable entry of a session's append-only history.
type ChatMessage struct {
	MessageID string         `json:"messageId"`
	Content   string         `json:"content"`
	Role      MessageRole    `json:"role"`
	Timestamp time.Time      `json:"timestamp"`
	UserID    string         `json:"userId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ChatSession is the state owned exclusively by one session actor.
// MessageCount only grows; IsActive transitions true→false exactly once
// and the state is read-only afterwards.
type ChatSession struct {
	SessionID    string         `json:"sessionId"`
	UserID       string         `json:"userId,omitempty"`
	UserType     UserType       `json:"userType"`
	MessageCount int            `json:"messageCount"`
	IsActive     bool           `json:"isActive"`
	LastActivity time.Time      `json:"lastActivity"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// RateLimitStatus is the answer to the read-only rate-limit query.
type RateLimitStatus struct {
	Limited      bool   `json:"limited"`
	Reason       string `json:"reason,omitempty"`
	MessageCount int    `json:"messageCount"`
	Limit        int    `json:"limit"`
}

// RateLimit reports whether the session has hit its message limit.
// Guests are limited at GuestMessageLimit; authenticated users never are.
func (s *ChatSession) RateLimit() RateLimitStatus {
	if s.UserType == UserGuest && s.MessageCount >= GuestMessageLimit {
		return RateLimitStatus{
			Limited:      true,
			Reason:       "Guest user message limit reached",
			MessageCount: s.MessageCount,
			Limit:        GuestMessageLimit,
		}
	}
	limit := -1
	if s.UserType == UserGuest {
		limit = GuestMessageLimit
	}
	return RateLimitStatus{
		Limited:      false,
		MessageCount: s.MessageCount,
		Limit:        limit,
	}
}
