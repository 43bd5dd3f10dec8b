// ABOUTME: Remote aggregate loader with per-screen cancellation
// ABOUTME: Only the newest load of a live screen may deliver a result
package workspace

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/harperreed/leadopp/models"
)

// AggregateReader performs the single read behind a detail screen.
type AggregateReader interface {
	GetAggregate(ctx context.Context, kind models.EntityKind, id string) (*models.Aggregate, error)
}

// Loader issues aggregate reads for one screen instance. A newer Load
// supersedes an older one, and Close abandons whatever is in flight.
type Loader struct {
	reader AggregateReader
	kind   models.EntityKind
	log    zerolog.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	closed bool
}

func NewLoader(reader AggregateReader, kind models.EntityKind, logger zerolog.Logger) *Loader {
	return &Loader{
		reader: reader,
		kind:   kind,
		log:    logger.With().Str("component", "loader").Str("kind", string(kind)).Logger(),
	}
}

// Load reads id. It returns ErrDiscarded when the result arrives after a
// newer Load or after Close. Failures are not retried.
func (l *Loader) Load(ctx context.Context, id string) (*models.Aggregate, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrDiscarded
	}
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	lctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()

	agg, err := l.reader.GetAggregate(lctx, l.kind, id)

	l.mu.Lock()
	current := !l.closed && l.gen == gen
	if current {
		l.cancel = nil
	}
	l.mu.Unlock()
	cancel()

	if !current {
		l.log.Debug().Str("id", id).Msg("discarding stale load")
		return nil, ErrDiscarded
	}
	return agg, err
}

// Close cancels any in-flight load; later results are discarded.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

func (l *Loader) Kind() models.EntityKind { return l.kind }
