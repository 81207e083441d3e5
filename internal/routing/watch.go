package routing

import (
	"context"
	"time"

	"github.com/reugn/go-streams"
	"github.com/reugn/go-streams/extension"
	"github.com/reugn/go-streams/flow"
	"github.com/rs/zerolog"

	"github.com/digestwatch/digestwatch/internal/logging"
	"github.com/digestwatch/digestwatch/pkg/model"
	"github.com/digestwatch/digestwatch/pkg/tracker"
)

// TickSource emits one scan trigger per interval, plus one immediately
// on startup.
type TickSource struct {
	in       chan any
	interval time.Duration
	Logger   *zerolog.Logger
}

var _ streams.Source = (*TickSource)(nil)

func NewTickSource(ctx context.Context, interval time.Duration) *TickSource {
	ts := &TickSource{
		in:       make(chan any),
		interval: interval,
		Logger:   logging.NewLogger("info", "component", "TickSource"),
	}
	ts.start(ctx)
	return ts
}

// Out returns the output channel of the source connector.
func (ts *TickSource) Out() <-chan any {
	return ts.in
}

// Via asynchronously streams data to the given Flow and returns it.
func (ts *TickSource) Via(operator streams.Flow) streams.Flow {
	flow.DoStream(ts, operator)
	return operator
}

func (ts *TickSource) start(ctx context.Context) {
	ticker := time.NewTicker(ts.interval)
	go func() {
		defer close(ts.in)
		defer ticker.Stop()
		ts.in <- time.Now()
		for {
			select {
			case tick := <-ticker.C:
				ts.Logger.Debug().Msg("TickSource wakes up")
				ts.in <- tick
			case <-ctx.Done():
				return
			}
		}
	}()
}

// WatchHandler holds the stages of the periodic watch flow.
type WatchHandler struct {
	Tracker        *tracker.Tracker
	IncludeStopped bool
	Logger         *zerolog.Logger
}

func NewWatchHandler(trk *tracker.Tracker, includeStopped bool) *WatchHandler {
	return &WatchHandler{
		Tracker:        trk,
		IncludeStopped: includeStopped,
		Logger:         logging.NewLogger("info", "component", "WatchHandler"),
	}
}

// RunScan executes one scan cycle and passes the result downstream.
func (wh *WatchHandler) RunScan(tick any) model.ScanResult {
	return wh.Tracker.ScanAndUpdate(context.Background(), wh.IncludeStopped)
}

// ReportChanges logs the outcome of one scan cycle.
func (wh *WatchHandler) ReportChanges(result model.ScanResult) model.ScanResult {
	if !result.Success {
		wh.Logger.Error().Str("error", result.Error).Msg("Scan failed")
		return result
	}
	if result.ChangesDetected == 0 && result.NewContainers == 0 {
		wh.Logger.Info().Int("containers", result.ContainersScanned).Msg("No changes detected")
		return result
	}
	for _, name := range result.ChangedNames {
		wh.Logger.Info().Str("container", name).Msg("Digest changed")
	}
	for _, name := range result.NewNames {
		wh.Logger.Info().Str("container", name).Msg("New container")
	}
	return result
}

// NewWatchFlow wires the periodic scan pipeline and blocks until ctx is
// cancelled.
func NewWatchFlow(ctx context.Context, trk *tracker.Tracker, interval time.Duration, includeStopped bool) {
	if interval <= 0 {
		interval = time.Hour
	}
	handler := NewWatchHandler(trk, includeStopped)
	NewTickSource(ctx, interval).
		Via(flow.NewMap(handler.RunScan, 1)).
		Via(flow.NewMap(handler.ReportChanges, 1)).
		To(extension.NewIgnoreSink())
}
