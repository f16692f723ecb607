package service

import "sync"

// cardLocks serializes balance mutations per card. Pairs are always
// acquired in ascending card-id order, so two transfers over an
// overlapping pair cannot deadlock and cannot both pass the funds check
// against a stale balance.
//
// Entries are never evicted: the map holds one mutex per card id ever
// transferred, so its size is bounded by the card table, not by request
// volume.
type cardLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newCardLocks() *cardLocks {
	return &cardLocks{locks: make(map[int64]*sync.Mutex)}
}

func (l *cardLocks) lock(id int64) *sync.Mutex {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m
}

// lockPair locks both cards in ascending id order and returns the unlock
// function.
func (l *cardLocks) lockPair(a, b int64) func() {
	if a > b {
		a, b = b, a
	}
	first := l.lock(a)
	second := l.lock(b)
	return func() {
		second.Unlock()
		first.Unlock()
	}
}
