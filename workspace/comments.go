// ABOUTME: Note draft buffer and server-ordered comment thread
// ABOUTME: Submits at most one draft at a time and reloads the thread on success
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/harperreed/leadopp/api"
	"github.com/harperreed/leadopp/models"
)

// CommentPoster sends a note with its attachment references.
type CommentPoster interface {
	PostComment(ctx context.Context, kind models.EntityKind, id, body string, refs []string) error
}

// ThreadOrder is a view toggle; it never changes the stored thread.
type ThreadOrder int

const (
	RecentLast ThreadOrder = iota
	RecentFirst
)

func (o ThreadOrder) String() string {
	if o == RecentFirst {
		return "Recent First"
	}
	return "Recent Last"
}

// CommentThread owns the draft and the read-only thread of one record.
type CommentThread struct {
	poster      CommentPoster
	attachments *AttachmentBuffer
	reload      func(ctx context.Context) error
	kind        models.EntityKind
	id          string
	log         zerolog.Logger

	mu       sync.Mutex
	draft    models.CommentDraft
	thread   []models.Comment
	errors   map[string][]string
	inFlight bool
}

// NewCommentThread wires a thread to its record. reload is called after a
// successful submit to refetch the thread from the server.
func NewCommentThread(poster CommentPoster, attachments *AttachmentBuffer, kind models.EntityKind, id string, reload func(ctx context.Context) error, logger zerolog.Logger) *CommentThread {
	return &CommentThread{
		poster:      poster,
		attachments: attachments,
		reload:      reload,
		kind:        kind,
		id:          id,
		log:         logger.With().Str("component", "comments").Str("id", id).Logger(),
	}
}

func (t *CommentThread) SetText(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.draft.Text = s
}

func (t *CommentThread) SetRichText(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.draft.RichText = s
}

func (t *CommentThread) Draft() models.CommentDraft {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.draft
}

// Hydrate replaces the thread wholesale.
func (t *CommentThread) Hydrate(comments []models.Comment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.thread = append([]models.Comment(nil), comments...)
}

// Thread returns the thread in the requested order.
func (t *CommentThread) Thread(order ThreadOrder) []models.Comment {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.Comment, len(t.thread))
	copy(out, t.thread)
	if order == RecentFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// FieldErrors returns the field errors of the last failed submit.
func (t *CommentThread) FieldErrors() map[string][]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string][]string, len(t.errors))
	for k, v := range t.errors {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Submitting reports whether a submit is outstanding.
func (t *CommentThread) Submitting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inFlight
}

// Submit posts the draft with the current attachment references. On success
// the draft and the staged attachments that were sent are cleared and the
// thread is reloaded.
// On failure the draft and attachments are left as they were.
func (t *CommentThread) Submit(ctx context.Context) error {
	t.mu.Lock()
	if t.inFlight {
		t.mu.Unlock()
		return ErrSubmitInFlight
	}
	body := t.draft.Body()
	if body == "" {
		t.mu.Unlock()
		return ErrEmptyDraft
	}
	t.inFlight = true
	t.mu.Unlock()

	refs, sent := t.attachments.snapshot()
	err := t.poster.PostComment(ctx, t.kind, t.id, body, refs)

	t.mu.Lock()
	t.inFlight = false
	if err != nil {
		var vf *api.ValidationFailure
		if errors.As(err, &vf) {
			t.errors = vf.Fields
		}
		t.mu.Unlock()
		t.log.Warn().Err(err).Msg("comment submit failed")
		return err
	}
	t.draft = models.CommentDraft{}
	t.errors = nil
	t.mu.Unlock()

	// Files staged while the post was out were not sent and stay staged.
	t.attachments.DropStaged(sent)

	if t.reload != nil {
		if err := t.reload(ctx); err != nil {
			return fmt.Errorf("comment saved but reload failed: %w", err)
		}
	}
	return nil
}

// Reset clears the draft, field errors and staged attachments locally.
func (t *CommentThread) Reset() {
	t.mu.Lock()
	t.draft = models.CommentDraft{}
	t.errors = nil
	t.mu.Unlock()

	t.attachments.Reset()
}
