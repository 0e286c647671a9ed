package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/relaydesk/support-bot/internal/domain"
	"github.com/relaydesk/support-bot/internal/topics"
)

func TestRouteInbound_NilMessage(t *testing.T) {
	r := newTestRelay(newMemoryRepo(), &recordingProvider{}, &stubGate{})

	outcome, err := r.RouteInbound(context.Background(), 42, topics.Profile{}, nil)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Error(t, err)
}

func TestRouteInbound_FirstContactDeliversIntoNewTopic(t *testing.T) {
	repo := newMemoryRepo()
	prov := &recordingProvider{}
	r := newTestRelay(repo, prov, &stubGate{})

	outcome, err := r.RouteInbound(context.Background(), 42, topics.Profile{FirstName: "Ann"}, &telebot.Message{Text: "help"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDelivered, outcome)

	calls := prov.sent()
	require.Len(t, calls, 1)
	assert.Equal(t, "text", calls[0].op)
	assert.Equal(t, "help", calls[0].text)
	assert.Equal(t, testSupportChat, calls[0].dest.ChatID)
	assert.Equal(t, 1, calls[0].dest.ThreadID)

	user, err := repo.FindByUserID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 1, user.ThreadID)
}

func TestRouteInbound_ReusesExistingTopic(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(domain.User{UserID: 42, ThreadID: 7})

	prov := &recordingProvider{}
	r := newTestRelay(repo, prov, &stubGate{})

	outcome, err := r.RouteInbound(context.Background(), 42, topics.Profile{}, &telebot.Message{Text: "again"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDelivered, outcome)

	calls := prov.sent()
	require.Len(t, calls, 1)
	assert.Equal(t, 7, calls[0].dest.ThreadID)
}

func TestRouteInbound_BannedUser(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(domain.User{UserID: 42, ThreadID: 7, Banned: true})

	prov := &recordingProvider{}
	gate := &stubGate{notify: true}
	r := newTestRelay(repo, prov, gate)

	outcome, err := r.RouteInbound(context.Background(), 42, topics.Profile{}, &telebot.Message{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeBlocked, outcome)

	assert.Empty(t, prov.sent())
	assert.Zero(t, gate.marks)
}

func TestRouteInbound_DirectoryFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.findErr = errors.New("connection refused")

	prov := &recordingProvider{}
	r := newTestRelay(repo, prov, &stubGate{})

	before := inboundOutcomeCount(t, OutcomeThreadUnavailable)

	outcome, err := r.RouteInbound(context.Background(), 42, topics.Profile{}, &telebot.Message{Text: "hi"})
	assert.Equal(t, OutcomeThreadUnavailable, outcome)
	assert.Error(t, err)
	assert.Empty(t, prov.sent())

	assert.Equal(t, before+1, inboundOutcomeCount(t, OutcomeThreadUnavailable))
}

func TestRouteInbound_SlowProviderHitsCallTimeout(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(domain.User{UserID: 42, ThreadID: 7})

	prov := &stalledProvider{}
	resolver := topics.NewResolver(repo, prov, 50*time.Millisecond, testLogger())
	r := New(repo, prov, resolver, TextMatcher{}, &stubGate{}, Config{
		SupportChatID: testSupportChat,
		CallTimeout:   50 * time.Millisecond,
		AckMessage:    "ack",
	}, testLogger())

	start := time.Now()
	outcome, err := r.RouteInbound(context.Background(), 42, topics.Profile{}, &telebot.Message{Text: "hi"})

	assert.Equal(t, OutcomeDeliveryFailed, outcome)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRouteInbound_TopicCreationFailure(t *testing.T) {
	prov := &recordingProvider{createErr: errors.New("api down")}
	r := newTestRelay(newMemoryRepo(), prov, &stubGate{})

	outcome, err := r.RouteInbound(context.Background(), 42, topics.Profile{}, &telebot.Message{Text: "hi"})
	assert.Equal(t, OutcomeThreadUnavailable, outcome)
	assert.Error(t, err)
	assert.Empty(t, prov.sent())
}

func TestRouteInbound_DispatchFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(domain.User{UserID: 42, ThreadID: 7})

	prov := &recordingProvider{sendErr: errors.New("flood wait")}
	gate := &stubGate{notify: true}
	r := newTestRelay(repo, prov, gate)

	outcome, err := r.RouteInbound(context.Background(), 42, topics.Profile{}, &telebot.Message{Text: "hi"})
	assert.Equal(t, OutcomeDeliveryFailed, outcome)
	assert.Error(t, err)

	// No acknowledgement after a failed dispatch.
	assert.Zero(t, gate.marks)
	assert.Empty(t, prov.sent())
}

func TestRouteInbound_AcknowledgementSentWhenGateOpens(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(domain.User{UserID: 42, ThreadID: 7})

	prov := &recordingProvider{}
	r := newTestRelay(repo, prov, &stubGate{notify: true})

	outcome, err := r.RouteInbound(context.Background(), 42, topics.Profile{}, &telebot.Message{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDelivered, outcome)

	calls := prov.sent()
	require.Len(t, calls, 2)

	ack := calls[1]
	assert.Equal(t, "text", ack.op)
	assert.Equal(t, "ack", ack.text)
	assert.Equal(t, int64(42), ack.dest.ChatID)
	assert.Zero(t, ack.dest.ThreadID)
}

func TestRouteInbound_AcknowledgementSkippedWhenGateClosed(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(domain.User{UserID: 42, ThreadID: 7})

	prov := &recordingProvider{}
	gate := &stubGate{notify: false}
	r := newTestRelay(repo, prov, gate)

	outcome, err := r.RouteInbound(context.Background(), 42, topics.Profile{}, &telebot.Message{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDelivered, outcome)

	assert.Equal(t, 1, gate.marks)
	assert.Len(t, prov.sent(), 1)
}

func TestRouteInbound_AcknowledgementFailureDoesNotAffectOutcome(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(domain.User{UserID: 42, ThreadID: 7})

	prov := &recordingProvider{directErr: errors.New("blocked")}
	r := newTestRelay(repo, prov, &stubGate{notify: true})

	outcome, err := r.RouteInbound(context.Background(), 42, topics.Profile{}, &telebot.Message{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDelivered, outcome)
}

func TestRouteInbound_GateFailureDoesNotAffectOutcome(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(domain.User{UserID: 42, ThreadID: 7})

	prov := &recordingProvider{}
	r := newTestRelay(repo, prov, &stubGate{err: errors.New("redis down")})

	outcome, err := r.RouteInbound(context.Background(), 42, topics.Profile{}, &telebot.Message{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDelivered, outcome)
	assert.Len(t, prov.sent(), 1)
}

func TestRouteInbound_MediaDispatch(t *testing.T) {
	tests := []struct {
		name   string
		msg    *telebot.Message
		wantOp string
	}{
		{
			name:   "photo",
			msg:    &telebot.Message{Photo: &telebot.Photo{File: telebot.File{FileID: "ph1"}}},
			wantOp: "photo",
		},
		{
			name:   "voice",
			msg:    &telebot.Message{Voice: &telebot.Voice{File: telebot.File{FileID: "v1"}}},
			wantOp: "voice",
		},
		{
			name:   "location",
			msg:    &telebot.Message{Location: &telebot.Location{Lat: 1, Lng: 2}},
			wantOp: "location",
		},
		{
			name:   "unclassified content is forwarded",
			msg:    &telebot.Message{Dice: &telebot.Dice{Type: "🎲"}},
			wantOp: "forward",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRepo()
			repo.seed(domain.User{UserID: 42, ThreadID: 7})

			prov := &recordingProvider{}
			r := newTestRelay(repo, prov, &stubGate{})

			outcome, err := r.RouteInbound(context.Background(), 42, topics.Profile{}, tt.msg)
			require.NoError(t, err)
			assert.Equal(t, OutcomeDelivered, outcome)

			calls := prov.sent()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.wantOp, calls[0].op)
		})
	}
}
