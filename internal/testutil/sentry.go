package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/require"
)

// SentryRecorder is a Sentry hub whose client keeps events in memory
// instead of sending them.
type SentryRecorder struct {
	Hub *sentry.Hub

	mu           sync.Mutex
	events       []*sentry.Event
	transactions []*sentry.Event
}

func NewSentryRecorder(t *testing.T) *SentryRecorder {
	t.Helper()
	rec := &SentryRecorder{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              "https://public@sentry.example.com/1",
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			rec.mu.Lock()
			defer rec.mu.Unlock()
			rec.events = append(rec.events, event)
			return nil
		},
		BeforeSendTransaction: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			rec.mu.Lock()
			defer rec.mu.Unlock()
			rec.transactions = append(rec.transactions, event)
			return nil
		},
	})
	require.NoError(t, err)
	rec.Hub = sentry.NewHub(client, sentry.NewScope())
	return rec
}

// Context returns ctx with the recording hub bound to it.
func (r *SentryRecorder) Context(ctx context.Context) context.Context {
	return sentry.SetHubOnContext(ctx, r.Hub)
}

// Events returns the captured error events.
func (r *SentryRecorder) Events() []*sentry.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*sentry.Event(nil), r.events...)
}

// Transactions returns the finished transactions.
func (r *SentryRecorder) Transactions() []*sentry.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*sentry.Event(nil), r.transactions...)
}
