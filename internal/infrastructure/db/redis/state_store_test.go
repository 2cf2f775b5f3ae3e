package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeStateClient keeps issued keys in a map and answers with
// hand-built command results, mirroring SET and DEL semantics.
type fakeStateClient struct {
	entries map[string]time.Duration
	setErr  error
	delErr  error
}

func newFakeStateClient() *fakeStateClient {
	return &fakeStateClient{entries: map[string]time.Duration{}}
}

func (f *fakeStateClient) Set(ctx context.Context, key string, _ interface{}, ttl time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if f.setErr != nil {
		cmd.SetErr(f.setErr)
		return cmd
	}
	f.entries[key] = ttl
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeStateClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.delErr != nil {
		cmd.SetErr(f.delErr)
		return cmd
	}
	var n int64
	for _, key := range keys {
		if _, ok := f.entries[key]; ok {
			delete(f.entries, key)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func TestStateStore_IssueRecordsBoundedToken(t *testing.T) {
	client := newFakeStateClient()
	store := &StateStore{client: client}

	state, err := store.Issue(context.Background())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if len(state) != 32 {
		t.Fatalf("Issue() token length = %d, want 32", len(state))
	}
	ttl, ok := client.entries["oauth_state:"+state]
	if !ok {
		t.Fatalf("Issue() did not record key oauth_state:%s", state)
	}
	if ttl != stateTTL {
		t.Errorf("Issue() TTL = %v, want %v", ttl, stateTTL)
	}

	other, err := store.Issue(context.Background())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if other == state {
		t.Errorf("Issue() returned the same token twice: %s", state)
	}
}

func TestStateStore_ConsumeIsSingleUse(t *testing.T) {
	client := newFakeStateClient()
	store := &StateStore{client: client}

	state, err := store.Issue(context.Background())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	ok, err := store.Consume(context.Background(), state)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if !ok {
		t.Fatalf("Consume() first use = false, want true")
	}

	ok, err = store.Consume(context.Background(), state)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if ok {
		t.Errorf("Consume() replay = true, want false")
	}
}

func TestStateStore_ConsumeRejectsUnknownState(t *testing.T) {
	store := &StateStore{client: newFakeStateClient()}

	ok, err := store.Consume(context.Background(), "forged")
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if ok {
		t.Errorf("Consume() unknown state = true, want false")
	}
}

func TestStateStore_PropagatesBackendErrors(t *testing.T) {
	backendErr := errors.New("connection refused")

	client := newFakeStateClient()
	client.setErr = backendErr
	store := &StateStore{client: client}
	if _, err := store.Issue(context.Background()); !errors.Is(err, backendErr) {
		t.Errorf("Issue() error = %v, want wrapped %v", err, backendErr)
	}
	if len(client.entries) != 0 {
		t.Errorf("Issue() wrote %d entries despite backend error", len(client.entries))
	}

	client = newFakeStateClient()
	client.delErr = backendErr
	store = &StateStore{client: client}
	if _, err := store.Consume(context.Background(), "any"); !errors.Is(err, backendErr) {
		t.Errorf("Consume() error = %v, want wrapped %v", err, backendErr)
	}
}
