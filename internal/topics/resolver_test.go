package topics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/relaydesk/support-bot/internal/domain"
	"github.com/relaydesk/support-bot/internal/provider"
	"github.com/relaydesk/support-bot/internal/repository"
)

type memoryRepo struct {
	mu     sync.Mutex
	users  map[int64]*domain.User
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[int64]*domain.User)}
}

func (r *memoryRepo) FindByUserID(_ context.Context, userID int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

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

type stubProvider struct {
	mu         sync.Mutex
	created    int
	nextThread int
	createErr  error
}

func (p *stubProvider) CreateThread(context.Context, string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.createErr != nil {
		return 0, p.createErr
	}

	p.created++
	p.nextThread++
	return p.nextThread, nil
}

func (p *stubProvider) createdCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created
}

func (p *stubProvider) SendText(context.Context, provider.Destination, string) error { return nil }
func (p *stubProvider) SendPhoto(context.Context, provider.Destination, string, string) error {
	return nil
}
func (p *stubProvider) SendDocument(context.Context, provider.Destination, string, string) error {
	return nil
}
func (p *stubProvider) SendVoice(context.Context, provider.Destination, string) error { return nil }
func (p *stubProvider) SendVideo(context.Context, provider.Destination, string, string) error {
	return nil
}
func (p *stubProvider) SendVideoNote(context.Context, provider.Destination, string) error {
	return nil
}
func (p *stubProvider) SendSticker(context.Context, provider.Destination, string) error { return nil }
func (p *stubProvider) SendLocation(context.Context, provider.Destination, float32, float32) error {
	return nil
}
func (p *stubProvider) SendContact(context.Context, provider.Destination, string, string, string) error {
	return nil
}
func (p *stubProvider) Forward(context.Context, provider.Destination, *telebot.Message) error {
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolver_FirstContactCreatesTopic(t *testing.T) {
	repo := newMemoryRepo()
	prov := &stubProvider{}
	resolver := NewResolver(repo, prov, 0, testLogger())

	threadID, err := resolver.Resolve(context.Background(), 42, Profile{FirstName: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, 1, threadID)
	assert.Equal(t, 1, prov.createdCount())

	user, err := repo.FindByUserID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, threadID, user.ThreadID)
}

func TestResolver_ExistingThreadSkipsProvider(t *testing.T) {
	repo := newMemoryRepo()
	repo.users[42] = &domain.User{ID: 1, UserID: 42, ThreadID: 7}

	prov := &stubProvider{}
	resolver := NewResolver(repo, prov, 0, testLogger())

	threadID, err := resolver.Resolve(context.Background(), 42, Profile{})
	require.NoError(t, err)
	assert.Equal(t, 7, threadID)
	assert.Zero(t, prov.createdCount())
}

func TestResolver_RepeatedResolveIsStable(t *testing.T) {
	repo := newMemoryRepo()
	prov := &stubProvider{}
	resolver := NewResolver(repo, prov, 0, testLogger())

	first, err := resolver.Resolve(context.Background(), 42, Profile{})
	require.NoError(t, err)

	second, err := resolver.Resolve(context.Background(), 42, Profile{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, prov.createdCount())
}

func TestResolver_ConcurrentFirstContact(t *testing.T) {
	repo := newMemoryRepo()
	prov := &stubProvider{}
	resolver := NewResolver(repo, prov, 0, testLogger())

	const workers = 16

	results := make([]int, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = resolver.Resolve(context.Background(), 42, Profile{FirstName: "Ann"})
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}

	assert.Equal(t, 1, prov.createdCount())
	assert.Len(t, repo.users, 1)
}

func TestResolver_ProviderFailure(t *testing.T) {
	repo := newMemoryRepo()
	prov := &stubProvider{createErr: errors.New("api down")}
	resolver := NewResolver(repo, prov, 0, testLogger())

	_, err := resolver.Resolve(context.Background(), 42, Profile{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrThreadCreation)

	// The user record exists but stays unassigned for the next attempt.
	user, findErr := repo.FindByUserID(context.Background(), 42)
	require.NoError(t, findErr)
	assert.False(t, user.HasThread())
}

func TestResolver_SlowProviderHitsCallTimeout(t *testing.T) {
	repo := newMemoryRepo()
	resolver := NewResolver(repo, &stalledThreadProvider{}, 50*time.Millisecond, testLogger())

	start := time.Now()
	_, err := resolver.Resolve(context.Background(), 42, Profile{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrThreadCreation)
	assert.Less(t, time.Since(start), time.Second)
}

func TestResolver_ReleasesUserLockAfterResolve(t *testing.T) {
	repo := newMemoryRepo()
	prov := &stubProvider{}
	resolver := NewResolver(repo, prov, 0, testLogger())

	_, err := resolver.Resolve(context.Background(), 42, Profile{})
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), 42, Profile{})
	require.NoError(t, err)

	resolver.mu.Lock()
	defer resolver.mu.Unlock()
	assert.Empty(t, resolver.locks)
}

// stalledThreadProvider never answers; only the call deadline ends the wait.
type stalledThreadProvider struct {
	stubProvider
}

func (p *stalledThreadProvider) CreateThread(ctx context.Context, _ string) (int, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

// lostRaceRepo simulates a concurrent writer assigning the topic between the
// provider call and the persist step.
type lostRaceRepo struct {
	*memoryRepo
	canonicalThread int
}

func (r *lostRaceRepo) SetThread(_ context.Context, userID int64, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, ok := r.users[userID]; ok {
		user.ThreadID = r.canonicalThread
	}

	return repository.ErrThreadTaken
}

func TestResolver_LostAssignmentRaceUsesStoredTopic(t *testing.T) {
	repo := &lostRaceRepo{memoryRepo: newMemoryRepo(), canonicalThread: 99}
	prov := &stubProvider{nextThread: 500}
	resolver := NewResolver(repo, prov, 0, testLogger())

	threadID, err := resolver.Resolve(context.Background(), 42, Profile{})
	require.NoError(t, err)
	assert.Equal(t, 99, threadID)
}
