package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Action selects which lookup a job runs
type Action string

const (
	ActionRank   Action = "rank"
	ActionIntent Action = "intent"
)

// ParseAction converts a user supplied action name into an Action
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionRank:
		return ActionRank, nil
	case ActionIntent:
		return ActionIntent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// Command returns the chat command that triggers the action
func (a Action) Command() string {
	if a == ActionIntent {
		return "/intent"
	}
	return "/search"
}

// ReplyTarget identifies where the answer for a job is delivered.
// Only the chat adapter interprets its fields.
type ReplyTarget struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id,omitempty"`
}

// Job is one queued keyword request
type Job struct {
	ID        string      `json:"id"`
	Target    ReplyTarget `json:"target"`
	Action    Action      `json:"action"`
	Keyword   string      `json:"keyword"`
	CreatedAt time.Time   `json:"created_at"`
}

// Replier delivers text to a reply target
type Replier interface {
	Reply(ctx context.Context, target ReplyTarget, text string) error
}
