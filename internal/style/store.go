package style

import (
	"context"
	"sync"
)

// Cause says why a document version was published.
type Cause int

const (
	CauseStartup Cause = iota
	CauseEdit
	CauseImport
)

func (c Cause) String() string {
	switch c {
	case CauseStartup:
		return "startup"
	case CauseEdit:
		return "edit"
	case CauseImport:
		return "import"
	}
	return "unknown"
}

// Publication is delivered to subscribers after a new version becomes current.
type Publication struct {
	Doc     Document
	Cause   Cause
	Version uint64
}

// Subscriber reacts to a publication. Subscribers run synchronously, in
// registration order, after the swap.
type Subscriber func(ctx context.Context, p Publication)

// Store owns the current document version.
type Store struct {
	mu      sync.RWMutex
	current Document
	version uint64
	subs    []Subscriber
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Subscribe registers fn for every future publication.
func (s *Store) Subscribe(fn Subscriber) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Current returns the published document.
func (s *Store) Current() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Version returns the number of publications so far.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Initialize publishes persisted if it is non-empty, else fallback.
func (s *Store) Initialize(ctx context.Context, persisted, fallback Document) Document {
	doc := fallback
	if !persisted.IsEmpty() {
		doc = persisted
	}
	s.publish(ctx, doc, CauseStartup)
	return doc
}

// Replace parses candidateText and, on success, publishes it as the new
// version. On failure the current version is left untouched and a
// *ParseError is returned.
func (s *Store) Replace(ctx context.Context, cause Cause, candidateText string) (Document, error) {
	doc, err := Parse(candidateText)
	if err != nil {
		return Empty, err
	}
	s.publish(ctx, doc, cause)
	return doc, nil
}

func (s *Store) publish(ctx context.Context, doc Document, cause Cause) {
	s.mu.Lock()
	s.current = doc
	s.version++
	p := Publication{Doc: doc, Cause: cause, Version: s.version}
	subs := make([]Subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(ctx, p)
	}
}
