package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shuttlepoint/server/pkg/logctx"
)

type published struct {
	key string
	v   any
}

type recordingPublisher struct {
	msgs []published
	err  error
}

func (r *recordingPublisher) PublishJSON(_ context.Context, key string, v any) error {
	r.msgs = append(r.msgs, published{key: key, v: v})
	return r.err
}

func TestPublish_WrapsInEnvelope(t *testing.T) {
	rec := &recordingPublisher{}
	p := New(rec, zap.NewNop().Sugar())
	p.now = func() time.Time { return time.Date(2025, 6, 5, 12, 0, 0, 0, time.UTC) }

	ctx := logctx.WithTraceID(context.Background(), "trace-9")
	p.Publish(ctx, KeyPointsPurchased, PointsPurchasedEvent{MerchantOrderNo: "1", Points: 550})

	require.Len(t, rec.msgs, 1)
	require.Equal(t, KeyPointsPurchased, rec.msgs[0].key)
	env := rec.msgs[0].v.(Envelope)
	require.Equal(t, "trace-9", env.TraceID)
	require.Equal(t, KeyPointsPurchased, env.Type)
	require.Equal(t, int64(550), env.Data.(PointsPurchasedEvent).Points)
}

func TestPublish_FailureIsLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	p := New(&recordingPublisher{err: errors.New("broker down")}, zap.New(core).Sugar())

	p.Publish(context.Background(), KeyActivitySuspended, ActivitySuspendedEvent{ActivityID: "a"})
	require.Equal(t, 1, logs.FilterMessage("publish domain event failed").Len())
}

func TestPublish_NilPublisherSafe(t *testing.T) {
	var p *Publisher
	require.NotPanics(t, func() { p.Publish(context.Background(), KeyRegistrationCancelled, nil) })
	require.NotPanics(t, func() { New(nil, zap.NewNop().Sugar()).Publish(context.Background(), KeyRegistrationCancelled, nil) })
}
