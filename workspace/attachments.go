// ABOUTME: Attachment buffer holding persisted references and staged local files
// ABOUTME: One ordered list of tagged entries; removing a staged entry releases its preview
package workspace

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/harperreed/leadopp/models"
)

// AttachmentKind tags a buffer entry.
type AttachmentKind int

const (
	AttachmentPersisted AttachmentKind = iota
	AttachmentStaged
)

// Attachment is one entry shown in the attachment list.
type Attachment struct {
	kind    AttachmentKind
	ref     models.AttachmentRef
	file    models.StagedFile
	preview PreviewHandle
}

func (a Attachment) Kind() AttachmentKind      { return a.kind }
func (a Attachment) Ref() models.AttachmentRef { return a.ref }
func (a Attachment) File() models.StagedFile   { return a.file }

// Preview returns the handle of a staged entry.
func (a Attachment) Preview() (PreviewHandle, bool) {
	return a.preview, a.kind == AttachmentStaged
}

func (a Attachment) Name() string {
	if a.kind == AttachmentStaged {
		return a.file.Name
	}
	return a.ref.Name
}

// Size is the staged file size, or -1 for persisted references.
func (a Attachment) Size() int64 {
	if a.kind == AttachmentStaged {
		return a.file.Size
	}
	return -1
}

// AttachmentBuffer is the unsaved attachment list of one screen.
type AttachmentBuffer struct {
	mu       sync.Mutex
	items    []Attachment
	previews PreviewProvider
	live     int
	log      zerolog.Logger
}

// NewAttachmentBuffer creates an empty buffer.
func NewAttachmentBuffer(previews PreviewProvider, logger zerolog.Logger) *AttachmentBuffer {
	return &AttachmentBuffer{
		previews: previews,
		log:      logger.With().Str("component", "attachments").Logger(),
	}
}

// Hydrate replaces the persisted entries with refs. Staged entries are kept
// after them in their current order.
func (b *AttachmentBuffer) Hydrate(refs []models.AttachmentRef) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := make([]Attachment, 0, len(refs)+len(b.items))
	for _, r := range refs {
		items = append(items, Attachment{kind: AttachmentPersisted, ref: r})
	}
	for _, it := range b.items {
		if it.kind == AttachmentStaged {
			items = append(items, it)
		}
	}
	b.items = items
}

// AddStaged appends a staged file and creates its preview. Nothing is added
// if the preview cannot be created.
func (b *AttachmentBuffer) AddStaged(file models.StagedFile) (Attachment, error) {
	if file.ID == "" {
		file.ID = newEntryID()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	h, err := b.previews.Create(file)
	if err != nil {
		return Attachment{}, fmt.Errorf("stage %s: %w", file.Name, err)
	}
	b.live++

	a := Attachment{kind: AttachmentStaged, file: file, preview: h}
	b.items = append(b.items, a)
	b.log.Debug().Str("file", file.Name).Int("live_previews", b.live).Msg("staged file")
	return a, nil
}

// RemoveAt removes the entry at index and releases its preview.
func (b *AttachmentBuffer) RemoveAt(index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if index < 0 || index >= len(b.items) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(b.items))
	}

	removed := b.items[index]
	b.items = append(b.items[:index:index], b.items[index+1:]...)
	b.release(removed)
	return nil
}

// Reset clears every entry and releases every preview.
func (b *AttachmentBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, it := range b.items {
		b.release(it)
	}
	b.items = nil
}

// release must be called with mu held. The handle counts as released even
// when the provider reports an error.
func (b *AttachmentBuffer) release(a Attachment) {
	if a.kind != AttachmentStaged {
		return
	}
	b.live--
	if err := b.previews.Release(a.preview); err != nil {
		b.log.Warn().Err(err).Str("file", a.file.Name).Msg("preview release failed")
	}
}

// Items returns a snapshot of the list.
func (b *AttachmentBuffer) Items() []Attachment {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Attachment, len(b.items))
	copy(out, b.items)
	return out
}

func (b *AttachmentBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// StagedCount is the number of staged entries present.
func (b *AttachmentBuffer) StagedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, it := range b.items {
		if it.kind == AttachmentStaged {
			n++
		}
	}
	return n
}

// LivePreviews is the number of created-but-unreleased preview handles.
func (b *AttachmentBuffer) LivePreviews() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live
}

// PersistedRefs lists the persisted references still shown.
func (b *AttachmentBuffer) PersistedRefs() []models.AttachmentRef {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.AttachmentRef
	for _, it := range b.items {
		if it.kind == AttachmentPersisted {
			out = append(out, it.ref)
		}
	}
	return out
}

// snapshot returns the submission refs together with the ids of the staged
// entries they include.
func (b *AttachmentBuffer) snapshot() ([]string, []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	refs := make([]string, 0, len(b.items))
	var staged []string
	for _, it := range b.items {
		if it.kind == AttachmentPersisted {
			refs = append(refs, it.ref.URL)
			continue
		}
		refs = append(refs, DataURL(it.file))
		staged = append(staged, it.file.ID)
	}
	return refs, staged
}

// DropStaged removes the staged entries with the given ids and releases
// their previews. Ids no longer in the buffer are skipped.
func (b *AttachmentBuffer) DropStaged(ids []string) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.items[:0:0]
	n := 0
	for _, it := range b.items {
		if it.kind == AttachmentStaged && drop[it.file.ID] {
			b.release(it)
			n++
			continue
		}
		kept = append(kept, it)
	}
	b.items = kept
	return n
}

// SubmissionRefs lists what a note submission carries: persisted URLs and
// staged files inlined as data URLs, in display order.
func (b *AttachmentBuffer) SubmissionRefs() []string {
	refs, _ := b.snapshot()
	return refs
}

// DataURL inlines a staged file, carrying its name as a media type parameter.
func DataURL(f models.StagedFile) string {
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	return "data:" + ct + ";name=" + url.PathEscape(f.Name) + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}

var ulidEntropy = ulid.Monotonic(rand.Reader, 0)
var ulidMu sync.Mutex

func newEntryID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

// NewStagedFile wraps raw bytes picked by the user.
func NewStagedFile(name string, data []byte) models.StagedFile {
	return models.StagedFile{
		ID:          newEntryID(),
		Name:        filepath.Base(name),
		Size:        int64(len(data)),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}
}

// StageFromPath reads a local file into a StagedFile.
func StageFromPath(path string) (models.StagedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.StagedFile{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return NewStagedFile(path, data), nil
}
