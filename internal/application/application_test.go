package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
	"github.com/oksasatya/bar-occupancy/internal/infrastructure/memory"
	"github.com/oksasatya/bar-occupancy/internal/infrastructure/seed"
	"github.com/oksasatya/bar-occupancy/internal/infrastructure/session"
	"github.com/oksasatya/bar-occupancy/pkg/helpers"
)

func fastHash(p string) (string, error) { return helpers.HashPasswordCost(p, bcrypt.MinCost) }

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	_, err := seed.Apply(context.Background(), store, fastHash)
	require.NoError(t, err)
	return store
}

func newAuth(store *memory.Store, sessions *session.MemoryStore) *AuthService {
	a := NewAuthService(store, sessions, helpers.NewJWTManager("test-secret", time.Hour), helpers.NewDiscardLogger())
	a.PasswordCost = bcrypt.MinCost
	return a
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []CountUpdated
	err    error
}

func (p *recordingPublisher) PublishJSON(_ context.Context, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := body.(CountUpdated); ok {
		p.events = append(p.events, ev)
	}
	return p.err
}

func TestLoginAndResolve(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	auth := newAuth(store, session.NewMemoryStore())

	u, ticket, err := auth.Login(ctx, "kk_manager", "kkpass123")
	require.NoError(t, err)
	assert.Equal(t, "kk_manager", u.Username)
	assert.NotEmpty(t, ticket.Token)
	assert.NotEmpty(t, ticket.SessionID)

	current, err := auth.Resolve(ctx, ticket.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, current.ID)
	assert.True(t, current.Manages(3))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	auth := newAuth(seededStore(t), session.NewMemoryStore())

	_, _, err := auth.Login(ctx, "kk_manager", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = auth.Login(ctx, "KK_MANAGER", "kkpass123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = auth.Login(ctx, "ghost", "kkpass123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// downUsers fails every lookup like an unreachable database.
type downUsers struct{ *memory.Store }

func (downUsers) GetUserByUsername(context.Context, string) (*entity.User, error) {
	return nil, errors.New("connection refused")
}

func TestAuthenticateSurfacesStoreErrors(t *testing.T) {
	auth := NewAuthService(downUsers{seededStore(t)}, session.NewMemoryStore(), helpers.NewJWTManager("test-secret", time.Hour), helpers.NewDiscardLogger())
	auth.PasswordCost = bcrypt.MinCost

	_, err := auth.Authenticate(context.Background(), "kk_manager", "kkpass123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestUnknownUserStillComparesHash(t *testing.T) {
	auth := newAuth(seededStore(t), session.NewMemoryStore())

	_, err := auth.Authenticate(context.Background(), "ghost", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	cost, err := bcrypt.Cost([]byte(auth.dummyHash()))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestLogoutRevokesSession(t *testing.T) {
	ctx := context.Background()
	auth := newAuth(seededStore(t), session.NewMemoryStore())

	_, ticket, err := auth.Login(ctx, "brats_manager", "bratspass123")
	require.NoError(t, err)
	require.NoError(t, auth.Logout(ctx, ticket.Token))

	_, err = auth.Resolve(ctx, ticket.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	assert.NoError(t, auth.Logout(ctx, "garbage"))
	assert.NoError(t, auth.Logout(ctx, ""))
}

func TestResolveRejectsForeignOrMissingTokens(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	auth := newAuth(store, session.NewMemoryStore())

	_, err := auth.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = auth.Resolve(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// Signed correctly but never saved as a session.
	token, _, err := auth.JWT.GenerateSessionToken(1, "unknown-sid")
	require.NoError(t, err)
	_, err = auth.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	auth := newAuth(store, session.NewMemoryStore())

	u, err := auth.Register(ctx, "newbie", "password123")
	require.NoError(t, err)
	assert.Equal(t, int64(5), u.ID)
	assert.True(t, u.IsBouncer)
	assert.Nil(t, u.BarID)
	assert.NotEqual(t, "password123", u.Password)

	_, err = auth.Register(ctx, "newbie", "otherpass1")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = auth.Register(ctx, "kk_manager", "otherpass1")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, _, err = auth.Login(ctx, "newbie", "password123")
	assert.NoError(t, err)
}

func manager(t *testing.T, store *memory.Store, username string) *entity.User {
	t.Helper()
	u, err := store.GetUserByUsername(context.Background(), username)
	require.NoError(t, err)
	return u
}

func TestUpdateCountByManager(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	pub := &recordingPublisher{}
	svc := NewOccupancyService(store, pub, helpers.NewDiscardLogger(), true)

	updated, err := svc.UpdateCount(ctx, manager(t, store, "whiskey_manager"), 2, 75)
	require.NoError(t, err)
	assert.Equal(t, 75, updated.CurrentCount)

	bars, err := svc.ListBars(ctx)
	require.NoError(t, err)
	require.Len(t, bars, 4)
	assert.Equal(t, 0, bars[0].CurrentCount)
	assert.Equal(t, 75, bars[1].CurrentCount)
	assert.Equal(t, 0, bars[2].CurrentCount)
	assert.Equal(t, 0, bars[3].CurrentCount)

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, int64(2), ev.BarID)
	assert.Equal(t, 0, ev.PreviousCount)
	assert.Equal(t, 75, ev.CurrentCount)
	assert.Equal(t, 150, ev.Capacity)
}

func TestUpdateCountIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	svc := NewOccupancyService(store, nil, nil, true)
	u := manager(t, store, "brats_manager")

	for i := 0; i < 2; i++ {
		b, err := svc.UpdateCount(ctx, u, 1, 42)
		require.NoError(t, err)
		assert.Equal(t, 42, b.CurrentCount)
	}
}

func TestUpdateCountErrors(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	svc := NewOccupancyService(store, nil, nil, true)
	brats := manager(t, store, "brats_manager")

	_, err := svc.UpdateCount(ctx, nil, 1, 5)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.UpdateCount(ctx, brats, 1, -1)
	assert.ErrorIs(t, err, ErrInvalidCount)

	_, err = svc.UpdateCount(ctx, brats, 999, 5)
	assert.ErrorIs(t, err, ErrBarNotFound)

	_, err = svc.UpdateCount(ctx, brats, 3, 5)
	assert.ErrorIs(t, err, ErrForbidden)

	b, err := store.GetBar(ctx, 3)
	require.NoError(t, err)
	assert.Zero(t, b.CurrentCount)
}

func TestUpdateCountWithoutOwnershipEnforcement(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	svc := NewOccupancyService(store, nil, nil, false)

	b, err := svc.UpdateCount(ctx, manager(t, store, "brats_manager"), 4, 33)
	require.NoError(t, err)
	assert.Equal(t, 33, b.CurrentCount)
}

func TestPublishFailureDoesNotFailUpdate(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewOccupancyService(store, pub, helpers.NewDiscardLogger(), true)

	b, err := svc.UpdateCount(ctx, manager(t, store, "chasers_manager"), 4, 130)
	require.NoError(t, err)
	assert.True(t, b.OverCapacity())
	assert.Len(t, pub.events, 1)
}

func TestSearchFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	search := NewSearchService(nil, "bars", store, nil)

	got, err := search.Search(ctx, "gorham", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "The KK", got[0].Name)
	assert.Equal(t, "Chasers", got[1].Name)

	got, err = search.Search(ctx, "WHISKEY", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)

	got, err = search.Search(ctx, "  ", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	n, err := search.Reindex(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

type memUploader struct {
	path        string
	contentType string
	body        []byte
}

func (u *memUploader) Upload(_ context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	u.path, u.contentType, u.body = objectPath, contentType, b
	return "mem://" + objectPath, nil
}

func TestSnapshotExport(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	up := &memUploader{}
	snap := &SnapshotService{
		Source:   NewOccupancyService(store, nil, nil, true),
		Uploader: up,
		Prefix:   "snapshots",
		Now:      func() time.Time { return time.Date(2024, 9, 6, 23, 15, 0, 0, time.UTC) },
	}

	url, err := snap.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "mem://snapshots/2024/09/06/231500.json", url)
	assert.Equal(t, "application/json", up.contentType)

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(up.body, &decoded))
	assert.Len(t, decoded.Bars, 4)
	assert.Equal(t, "State Street Brats", decoded.Bars[0].Name)
}

func TestSnapshotRequiresWiring(t *testing.T) {
	_, err := (&SnapshotService{}).Export(context.Background())
	assert.Error(t, err)
}

type countingUploader struct {
	mu    sync.Mutex
	paths []string
}

func (u *countingUploader) Upload(_ context.Context, objectPath, _ string, _ io.Reader) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.paths = append(u.paths, objectPath)
	return "mem://" + objectPath, nil
}

func (u *countingUploader) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.paths)
}

func TestSnapshotRunExportsUntilCancelled(t *testing.T) {
	up := &countingUploader{}
	snap := &SnapshotService{
		Source:   NewOccupancyService(seededStore(t), nil, nil, true),
		Uploader: up,
		Prefix:   "archive",
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		snap.Run(ctx, 5*time.Millisecond, helpers.NewDiscardLogger())
		close(done)
	}()

	require.Eventually(t, func() bool { return up.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot loop did not stop")
	}
	up.mu.Lock()
	assert.Contains(t, up.paths[0], "archive/")
	up.mu.Unlock()
}

func TestSnapshotRunIgnoresZeroInterval(t *testing.T) {
	done := make(chan struct{})
	go func() {
		(&SnapshotService{}).Run(context.Background(), 0, nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("zero interval should return immediately")
	}
}
