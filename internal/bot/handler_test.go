package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/cuongbtq/rankbot/internal/domain"
	"github.com/cuongbtq/rankbot/shared/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
)

// MockContext overrides the parts of tele.Context the handlers use
type MockContext struct {
	tele.Context
	ChatID     int64
	MessageID  int
	PayloadVal string
	SentMsg    interface{}
}

func (m *MockContext) Message() *tele.Message {
	return &tele.Message{
		ID:      m.MessageID,
		Chat:    &tele.Chat{ID: m.ChatID},
		Payload: m.PayloadVal,
	}
}

func (m *MockContext) Send(what interface{}, opts ...interface{}) error {
	m.SentMsg = what
	return nil
}

type submission struct {
	target domain.ReplyTarget
	action domain.Action
	args   []string
}

type fakeSubmitter struct {
	calls []submission
	err   error
}

func (f *fakeSubmitter) Submit(_ context.Context, target domain.ReplyTarget, action domain.Action, args []string) (*domain.Job, error) {
	f.calls = append(f.calls, submission{target: target, action: action, args: args})
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Job{ID: "job-1", Target: target, Action: action}, nil
}

func TestBotHandlers(t *testing.T) {
	tests := []struct {
		name    string
		handler func(b *Bot) tele.HandlerFunc
		payload string
		want    submission
	}{
		{
			name:    "search",
			handler: func(b *Bot) tele.HandlerFunc { return b.handleSearch },
			payload: "best  coffee hanoi",
			want: submission{
				target: domain.ReplyTarget{ChatID: 42, MessageID: 7},
				action: domain.ActionRank,
				args:   []string{"best", "coffee", "hanoi"},
			},
		},
		{
			name:    "intent",
			handler: func(b *Bot) tele.HandlerFunc { return b.handleIntent },
			payload: "buy shoes",
			want: submission{
				target: domain.ReplyTarget{ChatID: 42, MessageID: 7},
				action: domain.ActionIntent,
				args:   []string{"buy", "shoes"},
			},
		},
		{
			name:    "search without keyword",
			handler: func(b *Bot) tele.HandlerFunc { return b.handleSearch },
			payload: "",
			want: submission{
				target: domain.ReplyTarget{ChatID: 42, MessageID: 7},
				action: domain.ActionRank,
				args:   []string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &fakeSubmitter{}
			b := &Bot{intake: sub, logger: logger.NewNop()}
			ctx := &MockContext{ChatID: 42, MessageID: 7, PayloadVal: tt.payload}

			require.NoError(t, tt.handler(b)(ctx))
			require.Len(t, sub.calls, 1)
			assert.Equal(t, tt.want, sub.calls[0])

			// replies come from intake, not the handler
			assert.Nil(t, ctx.SentMsg)
		})
	}
}

func TestBotHandlers_SubmitErrorsAreSwallowed(t *testing.T) {
	for _, err := range []error{domain.ErrEmptyKeyword, errors.New("broker unavailable")} {
		b := &Bot{intake: &fakeSubmitter{err: err}, logger: logger.NewNop()}
		ctx := &MockContext{ChatID: 1, PayloadVal: "golang"}
		assert.NoError(t, b.handleSearch(ctx))
	}
}

func TestBotHandlers_Help(t *testing.T) {
	b := &Bot{intake: &fakeSubmitter{}, logger: logger.NewNop()}
	ctx := &MockContext{ChatID: 1}

	require.NoError(t, b.handleHelp(ctx))

	msg, ok := ctx.SentMsg.(string)
	require.True(t, ok)
	assert.Contains(t, msg, "/search <keyword>")
	assert.Contains(t, msg, "/intent <keyword>")
}
