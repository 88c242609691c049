package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "checkpoint/pkg/platform/audit"
	"checkpoint/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		MeetingID: "m-1",
		Action:    string(audit.EventCheckinRecorded),
	})
	require.NoError(t, err)

	events, err := store.ListByMeeting(context.Background(), "m-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventCheckinRecorded), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.Equal(t, audit.SeverityInfo, events[0].Severity)
	assert.NotEmpty(t, events[0].ID)
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	fixed := time.Date(2026, 3, 4, 19, 0, 0, 0, time.UTC)
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithClock(func() time.Time { return fixed }))

	require.NoError(t, pub.Emit(context.Background(), audit.Event{MeetingID: "m-1", Action: "x"}))

	events, _ := store.ListAll(context.Background())
	require.Len(t, events, 1)
	assert.Equal(t, fixed, events[0].Timestamp)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{
			MeetingID: "m-1",
			Action:    string(audit.EventCheckinRecorded),
		}))
	}
	pub.Close()

	events, err := store.ListByMeeting(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

type blockingStore struct {
	release chan struct{}
	mu      sync.Mutex
	got     []audit.Event
}

func (b *blockingStore) Append(_ context.Context, e audit.Event) error {
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	b.got = append(b.got, e)
	return nil
}

func TestPublisher_BufferFullDropsOldest(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	pub := NewPublisher(store, WithAsyncBuffer(2), WithMetrics(metrics))

	// The first event may already be in flight; flood past capacity.
	for i := range 20 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Reason: string(rune('a' + i))}))
	}
	assert.Positive(t, pub.Dropped())
	assert.Equal(t, float64(pub.Dropped()), testutil.ToFloat64(metrics.dropped))

	close(store.release)
	pub.Close()

	store.mu.Lock()
	defer store.mu.Unlock()
	require.NotEmpty(t, store.got)
	assert.Equal(t, string(rune('a'+19)), store.got[len(store.got)-1].Reason, "newest event survives")
}

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error { return errors.New("sink down") }

func TestPublisher_SyncReturnsSinkError(t *testing.T) {
	pub := NewPublisher(failingStore{})
	assert.Error(t, pub.Emit(context.Background(), audit.Event{Action: "x"}))
}

func TestPublisher_AsyncSwallowsSinkError(t *testing.T) {
	pub := NewPublisher(failingStore{}, WithAsyncBuffer(4))
	assert.NoError(t, pub.Emit(context.Background(), audit.Event{Action: "x"}))
	pub.Close()
}

func TestRingBufferFIFO(t *testing.T) {
	b := newRingBuffer(3)
	for _, r := range []string{"a", "b", "c", "d"} {
		b.enqueue(audit.Event{Reason: r})
	}
	assert.Equal(t, 3, b.len())
	assert.Equal(t, int64(1), b.droppedCount())

	got := b.dequeueBatch(10)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"b", "c", "d"}, []string{got[0].Reason, got[1].Reason, got[2].Reason})
	assert.Nil(t, b.dequeueBatch(1))
}
