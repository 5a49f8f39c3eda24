package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/meridian-billing/meridian/internal/observability"
)

type fakeMarker struct {
	asOf   time.Time
	marked int64
	err    error
}

func (f *fakeMarker) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	f.asOf = asOf
	return f.marked, f.err
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) Invalidate(ctx context.Context) error {
	f.calls++
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOverdueScanMarksAndInvalidates(t *testing.T) {
	marker := &fakeMarker{marked: 2}
	inval := &fakeInvalidator{}
	scanner := NewOverdueScanner(marker, inval, observability.NewMetrics(), discardLogger())

	asOf := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	task, err := NewOverdueScanTask(OverdueScanPayload{AsOf: asOf})
	require.NoError(t, err)

	require.NoError(t, scanner.Handle(context.Background(), task))
	require.Equal(t, asOf, marker.asOf)
	require.Equal(t, 1, inval.calls)
}

func TestOverdueScanNoChangesSkipsInvalidation(t *testing.T) {
	marker := &fakeMarker{marked: 0}
	inval := &fakeInvalidator{}
	scanner := NewOverdueScanner(marker, inval, observability.NewMetrics(), discardLogger())

	task, err := NewOverdueScanTask(OverdueScanPayload{})
	require.NoError(t, err)

	require.NoError(t, scanner.Handle(context.Background(), task))
	// zero AsOf resolves to the run time
	require.False(t, marker.asOf.IsZero())
	require.Zero(t, inval.calls)
}

func TestOverdueScanPropagatesErrors(t *testing.T) {
	marker := &fakeMarker{err: errors.New("db down")}
	scanner := NewOverdueScanner(marker, nil, observability.NewMetrics(), discardLogger())

	task, err := NewOverdueScanTask(OverdueScanPayload{})
	require.NoError(t, err)
	require.Error(t, scanner.Handle(context.Background(), task))
}

func TestOverdueScanBadPayloadSkipsRetry(t *testing.T) {
	scanner := NewOverdueScanner(&fakeMarker{}, nil, observability.NewMetrics(), discardLogger())

	task := asynq.NewTask(TaskOverdueScan, []byte("{not json"))
	err := scanner.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
