package services

import "sync"

// cascadeLocks serializes every writer that touches a team's scores or a
// season's prices: score recalculation holds the "team:" key, price cascades
// hold the "season:" key, and snapshot saves hold both so validation never
// reads mid-cascade values.
var cascadeLocks = newKeyedMutex()

// keyedMutex hands out one mutex per key so recalculation cascades for the
// same team or season serialize while unrelated ones run in parallel.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
}

func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	m := k.locks[key]
	k.mu.Unlock()
	m.Unlock()
}
