package relay

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/relaydesk/support-bot/internal/activity"
	"github.com/relaydesk/support-bot/internal/domain"
	"github.com/relaydesk/support-bot/internal/provider"
	"github.com/relaydesk/support-bot/internal/repository"
	"github.com/relaydesk/support-bot/internal/topics"
	"github.com/relaydesk/support-bot/pkg/metrics"
)

const testSupportChat int64 = -100500

type memoryRepo struct {
	mu      sync.Mutex
	users   map[int64]*domain.User
	nextID  int64
	findErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[int64]*domain.User)}
}

func (r *memoryRepo) seed(user domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	user.ID = r.nextID
	r.users[user.UserID] = &user
}

func (r *memoryRepo) FindByUserID(_ context.Context, userID int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findErr != nil {
		return nil, r.findErr
	}

	user, ok := r.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}

	copied := *user
	return &copied, nil
}

func (r *memoryRepo) FindByThreadID(_ context.Context, threadID int) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findErr != nil {
		return nil, r.findErr
	}

	for _, user := range r.users {
		if user.ThreadID == threadID {
			copied := *user
			return &copied, nil
		}
	}

	return nil, repository.ErrNotFound
}

func (r *memoryRepo) Create(_ context.Context, userID int64, platform string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, ok := r.users[userID]; ok {
		copied := *user
		return &copied, nil
	}

	if platform == "" {
		platform = domain.PlatformTelegram
	}

	r.nextID++
	user := &domain.User{ID: r.nextID, UserID: userID, Platform: platform}
	r.users[userID] = user

	copied := *user
	return &copied, nil
}

func (r *memoryRepo) SetThread(_ context.Context, userID int64, threadID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if user.ThreadID != 0 {
		return repository.ErrThreadTaken
	}

	user.ThreadID = threadID
	return nil
}

func (r *memoryRepo) SetBanned(_ context.Context, userID int64, banned bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}

	user.Banned = banned
	return nil
}

type sentCall struct {
	op   string
	dest provider.Destination
	text string
}

// recordingProvider captures every transport call. sendErr fails sends into
// topics, directErr fails sends to the user's private chat.
type recordingProvider struct {
	mu         sync.Mutex
	calls      []sentCall
	nextThread int
	createErr  error
	sendErr    error
	directErr  error
}

func (p *recordingProvider) CreateThread(context.Context, string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.createErr != nil {
		return 0, p.createErr
	}

	p.nextThread++
	return p.nextThread, nil
}

func (p *recordingProvider) record(op string, dest provider.Destination, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if dest.ThreadID != 0 && p.sendErr != nil {
		return p.sendErr
	}
	if dest.ThreadID == 0 && p.directErr != nil {
		return p.directErr
	}

	p.calls = append(p.calls, sentCall{op: op, dest: dest, text: text})
	return nil
}

func (p *recordingProvider) sent() []sentCall {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]sentCall(nil), p.calls...)
}

func (p *recordingProvider) SendText(_ context.Context, dest provider.Destination, text string) error {
	return p.record("text", dest, text)
}

func (p *recordingProvider) SendPhoto(_ context.Context, dest provider.Destination, fileID, _ string) error {
	return p.record("photo", dest, fileID)
}

func (p *recordingProvider) SendDocument(_ context.Context, dest provider.Destination, fileID, _ string) error {
	return p.record("document", dest, fileID)
}

func (p *recordingProvider) SendVoice(_ context.Context, dest provider.Destination, fileID string) error {
	return p.record("voice", dest, fileID)
}

func (p *recordingProvider) SendVideo(_ context.Context, dest provider.Destination, fileID, _ string) error {
	return p.record("video", dest, fileID)
}

func (p *recordingProvider) SendVideoNote(_ context.Context, dest provider.Destination, fileID string) error {
	return p.record("video_note", dest, fileID)
}

func (p *recordingProvider) SendSticker(_ context.Context, dest provider.Destination, fileID string) error {
	return p.record("sticker", dest, fileID)
}

func (p *recordingProvider) SendLocation(_ context.Context, dest provider.Destination, _, _ float32) error {
	return p.record("location", dest, "")
}

func (p *recordingProvider) SendContact(_ context.Context, dest provider.Destination, phone, _, _ string) error {
	return p.record("contact", dest, phone)
}

func (p *recordingProvider) Forward(_ context.Context, dest provider.Destination, _ *telebot.Message) error {
	return p.record("forward", dest, "")
}

type stubGate struct {
	notify bool
	err    error
	marks  int
}

func (g *stubGate) Mark(context.Context, int64) (bool, error) {
	g.marks++
	if g.err != nil {
		return false, g.err
	}
	return g.notify, nil
}

// stalledProvider never answers a send; only the call deadline ends the wait.
type stalledProvider struct {
	recordingProvider
}

func (p *stalledProvider) SendText(ctx context.Context, _ provider.Destination, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// inboundOutcomeCount reads the routed-message counter for an inbound outcome
// across all payload kinds from the default Prometheus registry.
func inboundOutcomeCount(t *testing.T, outcome Outcome) float64 {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	var total float64
	for _, family := range families {
		if family.GetName() != "relay_messages_total" {
			continue
		}

		for _, metric := range family.GetMetric() {
			labels := make(map[string]string, len(metric.GetLabel()))
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}

			if labels["direction"] == metrics.DirectionInbound && labels["outcome"] == outcome.String() {
				total += metric.GetCounter().GetValue()
			}
		}
	}

	return total
}

func newTestRelay(repo repository.UserRepository, prov provider.Provider, gate activity.Gate) *Relay {
	resolver := topics.NewResolver(repo, prov, time.Second, testLogger())

	return New(repo, prov, resolver, TextMatcher{}, gate, Config{
		SupportChatID: testSupportChat,
		CallTimeout:   time.Second,
		AckMessage:    "ack",
	}, testLogger())
}
