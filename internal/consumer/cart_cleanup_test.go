package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gotest.tools/v3/assert"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	fetched   []string
	committed []string
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.msgs) > 0 {
		m := f.msgs[0]
		f.msgs = f.msgs[1:]
		f.fetched = append(f.fetched, string(m.Key))
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, string(m.Key))
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

func (f *fakeReader) committedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.committed...)
}

func (f *fakeReader) fetchedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

// flakyStore fails Load for one session a fixed number of times.
type flakyStore struct {
	cart.SessionStore

	mu       sync.Mutex
	session  string
	failures int
	loads    int
}

func (f *flakyStore) Load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	f.mu.Lock()
	if sessionID == f.session {
		f.loads++
		if f.loads <= f.failures {
			f.mu.Unlock()
			return nil, errors.New("connection refused")
		}
	}
	f.mu.Unlock()
	return f.SessionStore.Load(ctx, sessionID)
}

func (f *flakyStore) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

func newTestCleanup(reader MessageReader, store cart.SessionStore) *CartCleanup {
	c := newCartCleanup(reader, store, zap.NewNop())
	c.retryBase = time.Millisecond
	c.retryMax = 5 * time.Millisecond
	return c
}

func runCleanup(c *CartCleanup) (context.CancelFunc, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	return cancel, done
}

var placedAt = time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

func setupStore(t *testing.T) (*cart.RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cart.NewRedisStore(client, time.Hour), mr
}

func saveCart(t *testing.T, store *cart.RedisStore, sessionID string, updatedAt time.Time) {
	c := domain.NewCart(sessionID)
	c.Lines["3"] = domain.CartLine{Key: "3", ProductID: 3, Quantity: 1}
	c.UpdatedAt = updatedAt
	require.NoError(t, store.Save(context.Background(), c))
}

func placedMessage(t *testing.T, orderNumber, sessionID string) kafka.Message {
	value, err := json.Marshal(domain.OrderPlacedPayload{
		OrderNumber: orderNumber,
		SessionID:   sessionID,
		PlacedAt:    placedAt,
	})
	require.NoError(t, err)
	return kafka.Message{
		Key:     []byte(orderNumber),
		Value:   value,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(domain.EventOrderPlaced)}},
	}
}

func TestHandle_ClearsCartOfPlacedOrder(t *testing.T) {
	store, mr := setupStore(t)
	saveCart(t, store, "sess-a", placedAt.Add(-time.Minute))
	c := &CartCleanup{reader: &fakeReader{}, store: store, log: zap.NewNop()}

	err := c.handle(context.Background(), placedMessage(t, "ORD-1", "sess-a"))
	assert.NilError(t, err)
	assert.Assert(t, !mr.Exists("cart:sess-a"))
}

func TestHandle_KeepsCartTouchedAfterOrder(t *testing.T) {
	store, mr := setupStore(t)
	saveCart(t, store, "sess-b", placedAt.Add(time.Minute))
	c := &CartCleanup{reader: &fakeReader{}, store: store, log: zap.NewNop()}

	err := c.handle(context.Background(), placedMessage(t, "ORD-2", "sess-b"))
	assert.NilError(t, err)
	assert.Assert(t, mr.Exists("cart:sess-b"))
}

func TestHandle_IgnoresOtherEvents(t *testing.T) {
	store, mr := setupStore(t)
	saveCart(t, store, "sess-c", placedAt.Add(-time.Minute))
	c := &CartCleanup{reader: &fakeReader{}, store: store, log: zap.NewNop()}

	msg := placedMessage(t, "ORD-3", "sess-c")
	msg.Headers = []kafka.Header{{Key: "event_type", Value: []byte(domain.EventOrderStatusChanged)}}
	assert.NilError(t, c.handle(context.Background(), msg))
	assert.Assert(t, mr.Exists("cart:sess-c"))

	malformed := kafka.Message{
		Key:     []byte("ORD-4"),
		Value:   []byte(`{not json`),
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(domain.EventOrderPlaced)}},
	}
	assert.NilError(t, c.handle(context.Background(), malformed))

	// Missing carts are already clean.
	assert.NilError(t, c.handle(context.Background(), placedMessage(t, "ORD-5", "sess-unknown")))
}

func TestRun_CommitsHandledMessages(t *testing.T) {
	store, mr := setupStore(t)
	saveCart(t, store, "sess-d", placedAt.Add(-time.Minute))

	reader := &fakeReader{msgs: []kafka.Message{placedMessage(t, "ORD-6", "sess-d")}}
	cancel, done := runCleanup(newTestCleanup(reader, store))

	require.Eventually(t, func() bool { return len(reader.committedKeys()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.DeepEqual(t, []string{"ORD-6"}, reader.committedKeys())
	assert.Assert(t, !mr.Exists("cart:sess-d"))

	cancel()
	<-done
}

func TestRun_RetriesFailedMessageBeforeMovingOn(t *testing.T) {
	store, mr := setupStore(t)
	saveCart(t, store, "sess-fail", placedAt.Add(-time.Minute))
	saveCart(t, store, "sess-ok", placedAt.Add(-time.Minute))
	flaky := &flakyStore{SessionStore: store, session: "sess-fail", failures: 3}

	failing := placedMessage(t, "ORD-FAIL", "sess-fail")
	failing.Partition, failing.Offset = 0, 10
	ok := placedMessage(t, "ORD-OK", "sess-ok")
	ok.Partition, ok.Offset = 0, 11

	reader := &fakeReader{msgs: []kafka.Message{failing, ok}}
	cancel, done := runCleanup(newTestCleanup(reader, flaky))

	require.Eventually(t, func() bool { return len(reader.committedKeys()) == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.DeepEqual(t, []string{"ORD-FAIL", "ORD-OK"}, reader.fetchedKeys())
	assert.DeepEqual(t, []string{"ORD-FAIL", "ORD-OK"}, reader.committedKeys())
	assert.Equal(t, 4, flaky.loadCount())
	assert.Assert(t, !mr.Exists("cart:sess-fail"))
	assert.Assert(t, !mr.Exists("cart:sess-ok"))
}

func TestRun_StopsRetryingOnCancelWithoutCommit(t *testing.T) {
	store, mr := setupStore(t)
	saveCart(t, store, "sess-e", placedAt.Add(-time.Minute))
	saveCart(t, store, "sess-next", placedAt.Add(-time.Minute))
	flaky := &flakyStore{SessionStore: store, session: "sess-e", failures: 1 << 30}

	reader := &fakeReader{msgs: []kafka.Message{
		placedMessage(t, "ORD-7", "sess-e"),
		placedMessage(t, "ORD-8", "sess-next"),
	}}
	cancel, done := runCleanup(newTestCleanup(reader, flaky))

	require.Eventually(t, func() bool { return flaky.loadCount() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.DeepEqual(t, []string{"ORD-7"}, reader.fetchedKeys())
	assert.Equal(t, 0, len(reader.committedKeys()))
	assert.Assert(t, mr.Exists("cart:sess-e"))
	assert.Assert(t, mr.Exists("cart:sess-next"))
}
