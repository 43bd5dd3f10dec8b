// ABOUTME: Route holder carrying a single-use hand-off between screens
// ABOUTME: The destination takes the hand-off once, or re-fetches by id when none is waiting
package workspace

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/harperreed/leadopp/models"
)

// Navigator tracks the current route and at most one pending hand-off.
type Navigator struct {
	mu       sync.Mutex
	route    string
	history  []string
	pending  *models.NavigationHandoff
	target   string
	watchers []func(route string)
}

func NewNavigator(start string) *Navigator {
	return &Navigator{route: start}
}

// OnChange registers fn to run after every route change.
func (n *Navigator) OnChange(fn func(route string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.watchers = append(n.watchers, fn)
}

// Navigate moves to route. A non-nil handoff waits for that route; any
// earlier pending hand-off is dropped.
func (n *Navigator) Navigate(route string, handoff *models.NavigationHandoff) {
	n.mu.Lock()
	if n.route != "" && n.route != route {
		n.history = append(n.history, n.route)
	}
	n.route = route
	n.pending = handoff
	n.target = route
	watchers := append([]func(string){}, n.watchers...)
	n.mu.Unlock()

	for _, fn := range watchers {
		fn(route)
	}
}

// Back returns to the previous route without a hand-off.
func (n *Navigator) Back() (string, bool) {
	n.mu.Lock()
	if len(n.history) == 0 {
		n.mu.Unlock()
		return n.Route(), false
	}
	prev := n.history[len(n.history)-1]
	n.history = n.history[:len(n.history)-1]
	n.route = prev
	n.pending = nil
	n.target = ""
	watchers := append([]func(string){}, n.watchers...)
	n.mu.Unlock()

	for _, fn := range watchers {
		fn(prev)
	}
	return prev, true
}

// Take consumes the hand-off waiting for route.
func (n *Navigator) Take(route string) (*models.NavigationHandoff, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pending == nil || n.target != route {
		return nil, ErrNoHandoff
	}
	h := n.pending
	n.pending = nil
	n.target = ""
	return h, nil
}

func (n *Navigator) Route() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.route
}

// Reset forgets history and any pending hand-off.
func (n *Navigator) Reset(route string) {
	n.mu.Lock()
	n.history = nil
	n.pending = nil
	n.target = ""
	n.route = route
	watchers := append([]func(string){}, n.watchers...)
	n.mu.Unlock()

	for _, fn := range watchers {
		fn(route)
	}
}

// OpenEdit resolves the state an edit screen starts from. It prefers the
// hand-off waiting for route and falls back to loading id afresh.
func OpenEdit(ctx context.Context, nav *Navigator, route string, loader *Loader, id string, logger zerolog.Logger) (*models.NavigationHandoff, error) {
	h, err := nav.Take(route)
	if err == nil && (id == "" || h.SourceID() == id) {
		return h, nil
	}
	if id == "" {
		return nil, ErrNoHandoff
	}

	logger.Debug().Str("route", route).Str("id", id).Msg("no hand-off, re-fetching")
	agg, err := loader.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s for edit: %w", id, err)
	}
	return BuildHandoff(agg, id, logger)
}
