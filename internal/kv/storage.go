package kv

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when a slot has never been written.
var ErrNotFound = errors.New("slot not found")

// ErrEmptySlot is returned when trying to read or write a slot with an empty name.
var ErrEmptySlot = errors.New("empty slot name")

// Storage is the backing store contract: named slots holding serialized payloads.
type Storage interface {
	Get(ctx context.Context, slot string) ([]byte, error)
	Set(ctx context.Context, slot string, payload []byte) error
}

// LocalStorage provides an in-memory implementation of Storage.
type LocalStorage struct {
	mu sync.RWMutex
	m  map[string][]byte
}

// NewLocalStorage instantiates a new LocalStorage with an empty map.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{
		m: map[string][]byte{},
	}
}

// Get returns a copy of the payload stored under slot.
// Returns ErrNotFound if the slot was never set.
func (l *LocalStorage) Get(_ context.Context, slot string) ([]byte, error) {
	if slot == "" {
		return nil, ErrEmptySlot
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	b, ok := l.m[slot]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

// Set overwrites the payload stored under slot.
func (l *LocalStorage) Set(_ context.Context, slot string, payload []byte) error {
	if slot == "" {
		return ErrEmptySlot
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.m[slot] = append([]byte(nil), payload...)
	return nil
}
