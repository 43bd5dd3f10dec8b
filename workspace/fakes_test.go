// ABOUTME: Test doubles shared by the workspace tests
// ABOUTME: Counting preview provider, scripted backend and in-memory session
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/harperreed/leadopp/models"
	"github.com/harperreed/leadopp/session"
)

type countingPreviews struct {
	mu          sync.Mutex
	next        int
	live        map[string]bool
	released    []string
	failCreate  bool
	failRelease bool
}

func newCountingPreviews() *countingPreviews {
	return &countingPreviews{live: make(map[string]bool)}
}

func (p *countingPreviews) Create(file models.StagedFile) (PreviewHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failCreate {
		return PreviewHandle{}, errors.New("no preview")
	}
	p.next++
	id := fmt.Sprintf("p%d", p.next)
	p.live[id] = true
	return PreviewHandle{ID: id, Path: "/tmp/" + id + "-" + file.Name}, nil
}

func (p *countingPreviews) Release(h PreviewHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.live, h.ID)
	p.released = append(p.released, h.ID)
	if p.failRelease {
		return errors.New("release failed")
	}
	return nil
}

func (p *countingPreviews) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

type postCall struct {
	kind models.EntityKind
	id   string
	body string
	refs []string
}

type fakeBackend struct {
	mu        sync.Mutex
	aggs      map[string]*models.Aggregate
	loadErr   error
	loads     int
	slow      map[string]bool
	started   chan string
	posts     []postCall
	postErr   error
	postGate  chan struct{}
	postEnter chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		aggs:    make(map[string]*models.Aggregate),
		slow:    make(map[string]bool),
		started: make(chan string, 64),
	}
}

func (b *fakeBackend) GetAggregate(ctx context.Context, kind models.EntityKind, id string) (*models.Aggregate, error) {
	b.mu.Lock()
	b.loads++
	slow := b.slow[id]
	agg := b.aggs[id]
	err := b.loadErr
	b.mu.Unlock()

	b.started <- id
	if slow {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if agg == nil {
		return nil, fmt.Errorf("no aggregate %s", id)
	}
	return agg, nil
}

func (b *fakeBackend) PostComment(ctx context.Context, kind models.EntityKind, id, body string, refs []string) error {
	b.mu.Lock()
	b.posts = append(b.posts, postCall{kind: kind, id: id, body: body, refs: refs})
	gate, enter := b.postGate, b.postEnter
	err := b.postErr
	b.mu.Unlock()

	if enter != nil {
		enter <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return err
}

func (b *fakeBackend) Loads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loads
}

func (b *fakeBackend) Posts() []postCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]postCall(nil), b.posts...)
}

type memSession struct {
	mu       sync.Mutex
	values   map[string]string
	clearErr error
}

func newMemSession() *memSession {
	return &memSession{values: map[string]string{session.KeyToken: "Bearer t", session.KeyOrg: "org-1"}}
}

func (s *memSession) Role() string {
	v, _ := s.Get(session.KeyRole)
	return v
}

func (s *memSession) Authenticated() bool {
	t, _ := s.Get(session.KeyToken)
	o, _ := s.Get(session.KeyOrg)
	return t != "" && o != ""
}

func (s *memSession) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

func (s *memSession) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *memSession) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	s.values = map[string]string{}
	return nil
}

func leadAggregate(id string) *models.Aggregate {
	return &models.Aggregate{
		Kind: models.KindLead,
		ID:   id,
		Entity: models.Record{
			"id":     id,
			"status": "open",
			"tags":   []any{"vip"},
		},
		Lookups: models.Lookups{
			Countries: []models.Choice{{Code: "US", Label: "United States"}},
		},
		Attachments: []models.AttachmentRef{{ID: "a1", URL: "https://files.example/a1.pdf", Name: "a1.pdf"}},
		Comments: []models.Comment{
			{ID: "c1", Author: "ada@example.com", Body: "first"},
			{ID: "c2", Author: "bob@example.com", Body: "second"},
		},
	}
}
