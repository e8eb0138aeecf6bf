// Package analysis drives queued tracks through the feature-extraction
// oracle, strictly one call at a time to respect the API's rate limits.
package analysis

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"soniccluster/internal/library"
)

// FeatureOracle is the external feature-extraction service.
type FeatureOracle interface {
	Analyze(ctx context.Context, data []byte, mimeType string) (library.AudioFeatures, error)
}

// Analyzer drains the library's pending tracks through the oracle in FIFO
// order. A run works on the pending snapshot taken when it starts; callers
// re-invoke Run after enqueueing more tracks.
type Analyzer struct {
	lib    *library.Library
	oracle FeatureOracle

	running atomic.Bool

	mu       sync.Mutex
	onUpdate func()
}

// New creates an analyzer over the given library and oracle.
func New(lib *library.Library, oracle FeatureOracle) *Analyzer {
	return &Analyzer{lib: lib, oracle: oracle}
}

// SetUpdateFunc registers a hook invoked after each successful analysis,
// typically to trigger re-clustering. Pass nil to disable.
func (a *Analyzer) SetUpdateFunc(fn func()) {
	a.mu.Lock()
	a.onUpdate = fn
	a.mu.Unlock()
}

// Running reports whether a run is in flight.
func (a *Analyzer) Running() bool {
	return a.running.Load()
}

// Run processes every track that was pending when it was called. Invoking Run
// while another invocation is active is a no-op; the latch guarantees at most
// one oracle call is outstanding at any time. A failure on one track never
// halts the rest of the batch.
func (a *Analyzer) Run(ctx context.Context) {
	if !a.running.CompareAndSwap(false, true) {
		return
	}
	defer a.running.Store(false)

	for _, t := range a.lib.Pending() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Track may have been removed since the snapshot.
		if !a.lib.MarkAnalyzing(t.ID) {
			continue
		}

		features, err := a.oracle.Analyze(ctx, t.Data, t.MIMEType)
		if err != nil {
			log.Printf("Analysis failed for %s: %v", t.Name, err)
			if ferr := a.lib.Fail(t.ID, Classify(err)); ferr != nil {
				log.Printf("Record failure for %s: %v", t.Name, ferr)
			}
			continue
		}

		if cerr := a.lib.Complete(t.ID, features); cerr != nil {
			log.Printf("Record features for %s: %v", t.Name, cerr)
			continue
		}
		log.Printf("Analyzed %s: energy=%.2f valence=%.2f tempo=%.0f",
			t.Name, features.Energy, features.Valence, features.Tempo)

		a.mu.Lock()
		fn := a.onUpdate
		a.mu.Unlock()
		if fn != nil {
			fn()
		}
	}
}
