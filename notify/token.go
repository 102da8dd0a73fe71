package notify

import (
	"sync"

	"github.com/google/uuid"
)

// A Token represents one live subscription. Unsubscribe removes it; there is no implicit
// removal, so callers tie a Token's lifetime to their own with defer or a Bag.
type Token struct {
	id     uuid.UUID
	once   sync.Once
	cancel func()
}

func newToken(id uuid.UUID, cancel func()) *Token {
	return &Token{id: id, cancel: cancel}
}

// ID identifies the subscription.
func (t *Token) ID() uuid.UUID {
	return t.id
}

// Unsubscribe removes the subscription. Calling it more than once is a no-op.
func (t *Token) Unsubscribe() {
	if t == nil {
		return
	}
	t.once.Do(t.cancel)
}

// Bag collects tokens so they can be released together, typically on teardown.
type Bag struct {
	mu     sync.Mutex
	tokens []*Token
}

// Add keeps token until Clear.
func (b *Bag) Add(tokens ...*Token) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = append(b.tokens, tokens...)
}

// Len returns how many tokens the bag holds.
func (b *Bag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tokens)
}

// Clear unsubscribes every token in the bag and empties it.
func (b *Bag) Clear() {
	b.mu.Lock()
	tokens := b.tokens
	b.tokens = nil
	b.mu.Unlock()

	for _, token := range tokens {
		token.Unsubscribe()
	}
}
