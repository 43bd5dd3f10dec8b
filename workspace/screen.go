// ABOUTME: Detail screen state for one record
// ABOUTME: Wires loader, attachment buffer and comment thread, and hands off to the edit screen
package workspace

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/harperreed/leadopp/models"
)

// Backend is what a detail screen talks to.
type Backend interface {
	AggregateReader
	CommentPoster
}

// Screen holds everything a detail screen mutates. Edits stay local until
// a comment is submitted.
type Screen struct {
	kind        models.EntityKind
	id          string
	loader      *Loader
	attachments *AttachmentBuffer
	comments    *CommentThread
	log         zerolog.Logger

	mu  sync.Mutex
	agg *models.Aggregate
}

func NewScreen(backend Backend, previews PreviewProvider, kind models.EntityKind, id string, logger zerolog.Logger) *Screen {
	log := logger.With().Str("screen", string(kind)).Str("id", id).Logger()
	s := &Screen{
		kind:        kind,
		id:          id,
		loader:      NewLoader(backend, kind, log),
		attachments: NewAttachmentBuffer(previews, log),
		log:         log,
	}
	s.comments = NewCommentThread(backend, s.attachments, kind, id, s.Reload, log)
	return s
}

// Mount performs the initial load.
func (s *Screen) Mount(ctx context.Context) error {
	return s.Reload(ctx)
}

// Reload fetches the aggregate and hydrates the attachment list and thread.
// A discarded result leaves the screen untouched.
func (s *Screen) Reload(ctx context.Context) error {
	agg, err := s.loader.Load(ctx, s.id)
	if err != nil {
		if !errors.Is(err, ErrDiscarded) {
			s.log.Error().Err(err).Msg("load failed")
		}
		return err
	}

	s.mu.Lock()
	s.agg = agg
	s.mu.Unlock()

	s.attachments.Hydrate(agg.Attachments)
	s.comments.Hydrate(agg.Comments)
	return nil
}

func (s *Screen) Aggregate() (*models.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.agg == nil {
		return nil, ErrNotLoaded
	}
	return s.agg, nil
}

func (s *Screen) Kind() models.EntityKind        { return s.kind }
func (s *Screen) ID() string                     { return s.id }
func (s *Screen) Attachments() *AttachmentBuffer { return s.attachments }
func (s *Screen) Comments() *CommentThread       { return s.comments }
func (s *Screen) Loader() *Loader                { return s.loader }

// Edit builds the hand-off and moves to the kind's edit route.
func (s *Screen) Edit(nav *Navigator) (string, error) {
	agg, err := s.Aggregate()
	if err != nil {
		return "", err
	}
	h, err := BuildHandoff(agg, s.id, s.log)
	if err != nil {
		return "", err
	}
	spec, _ := models.SpecFor(s.kind)
	nav.Navigate(spec.EditRoute, h)
	return spec.EditRoute, nil
}

// Unmount abandons in-flight loads and releases every preview.
func (s *Screen) Unmount() {
	s.loader.Close()
	s.comments.Reset()
}
