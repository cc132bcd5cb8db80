// Package observability provides hooks for metrics and tracing of a search run.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup to
// receive events about candidate evaluation; the default hooks do nothing.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetSearchHooks(metrics.NewHooks())
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Search().OnStageComplete(ctx, observability.StageBuild, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// Stage names one step of a candidate evaluation.
type Stage string

// Evaluation stages in execution order.
const (
	StagePatch  Stage = "patch"
	StageBuild  Stage = "build"
	StageRender Stage = "render"
	StageParse  Stage = "parse"
	StageScore  Stage = "score"
)

// Stages lists all stages in execution order.
var Stages = []Stage{StagePatch, StageBuild, StageRender, StageParse, StageScore}

// =============================================================================
// Search Hooks
// =============================================================================

// SearchHooks receives events from the grid search.
type SearchHooks interface {
	// OnRunStart is called once before the first candidate.
	OnRunStart(ctx context.Context, runID string, total int)

	// OnCandidateStart is called before a candidate is evaluated.
	OnCandidateStart(ctx context.Context, index, total int)

	// OnStageComplete is called after each evaluation stage, successful or not.
	OnStageComplete(ctx context.Context, stage Stage, duration time.Duration, err error)

	// OnCandidateComplete is called with the candidate's score, or the error
	// that excluded it.
	OnCandidateComplete(ctx context.Context, index int, score float64, duration time.Duration, err error)

	// OnNewBest is called when a candidate becomes the best so far.
	OnNewBest(ctx context.Context, index int, score float64)

	// OnRunComplete is called once after the grid is exhausted.
	OnRunComplete(ctx context.Context, succeeded, failed int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopSearchHooks is a no-op implementation of SearchHooks.
type NoopSearchHooks struct{}

func (NoopSearchHooks) OnRunStart(context.Context, string, int)                      {}
func (NoopSearchHooks) OnCandidateStart(context.Context, int, int)                   {}
func (NoopSearchHooks) OnStageComplete(context.Context, Stage, time.Duration, error) {}
func (NoopSearchHooks) OnCandidateComplete(context.Context, int, float64, time.Duration, error) {
}
func (NoopSearchHooks) OnNewBest(context.Context, int, float64)                {}
func (NoopSearchHooks) OnRunComplete(context.Context, int, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	searchHooks SearchHooks = NoopSearchHooks{}
	hooksMu     sync.RWMutex
)

// SetSearchHooks registers custom search hooks.
// This should be called once at application startup before any search runs.
func SetSearchHooks(h SearchHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		searchHooks = h
	}
}

// Search returns the registered search hooks.
func Search() SearchHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return searchHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	searchHooks = NoopSearchHooks{}
}
