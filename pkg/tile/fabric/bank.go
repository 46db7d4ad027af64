package fabric

import "sync"

// Bank records words written to a memory address. The fabric does not
// model memory semantics beyond keeping the writes in arrival order.
type Bank struct {
	mu    sync.Mutex
	group int
	words []int
}

func (b *Bank) write(group, word int) {
	b.mu.Lock()
	b.group = group
	b.words = append(b.words, word)
	b.mu.Unlock()
}

// Words returns a copy of the words written so far.
func (b *Bank) Words() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.words...)
}

// Group is the bank-group size of the most recent write.
func (b *Bank) Group() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.group
}
