// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package storage provides the dense, epoch-checked slot table that backs a
// resource registry.
//
// Storage is not safe for concurrent use; callers serialize access (the
// registry package holds an RWMutex around it).
package storage

import "github.com/gogpu/hub/identity"

type slot[T any] struct {
	value    T
	epoch    identity.Epoch
	occupied bool
}

// Storage maps (index, epoch) identities to values of type T.
//
// Lookups never panic: an index past the end, an empty slot and an epoch
// mismatch all report identity.ErrStaleHandle.
type Storage[T any] struct {
	slots []slot[T]
	count int
}

// New creates an empty Storage.
func New[T any]() *Storage[T] {
	return &Storage[T]{slots: make([]slot[T], 0, 16)}
}

// Insert stores v under id. The table grows to fit id's index.
func (s *Storage[T]) Insert(id identity.RawID, v T) error {
	if id.Epoch() == 0 {
		return identity.ErrInvalidID
	}
	index := int(id.Index())
	if index >= len(s.slots) {
		if index >= cap(s.slots) {
			grown := make([]slot[T], len(s.slots), max(index+1, 2*cap(s.slots)))
			copy(grown, s.slots)
			s.slots = grown
		}
		s.slots = s.slots[:index+1]
	}

	sl := &s.slots[index]
	if sl.occupied {
		return identity.ErrAlreadyRegistered
	}
	sl.value = v
	sl.epoch = id.Epoch()
	sl.occupied = true
	s.count++
	return nil
}

// Get returns a pointer to the value stored under id. The pointer is valid
// until the next Insert or Remove.
func (s *Storage[T]) Get(id identity.RawID) (*T, error) {
	sl := s.lookup(id)
	if sl == nil {
		return nil, identity.ErrStaleHandle
	}
	return &sl.value, nil
}

// Contains reports whether id refers to a stored value.
func (s *Storage[T]) Contains(id identity.RawID) bool {
	return s.lookup(id) != nil
}

// Remove detaches and returns the value stored under id. The slot is left
// empty and its memory is cleared.
func (s *Storage[T]) Remove(id identity.RawID) (T, error) {
	sl := s.lookup(id)
	if sl == nil {
		var zero T
		return zero, identity.ErrStaleHandle
	}
	v := sl.value
	*sl = slot[T]{}
	s.count--
	return v, nil
}

// Len returns the number of stored values.
func (s *Storage[T]) Len() int { return s.count }

// Each calls fn for every stored value in index order until fn returns false.
// fn must not Insert or Remove.
func (s *Storage[T]) Each(fn func(identity.RawID, *T) bool) {
	for i := range s.slots {
		sl := &s.slots[i]
		if !sl.occupied {
			continue
		}
		if !fn(identity.NewRawID(identity.Index(i), sl.epoch), &sl.value) {
			return
		}
	}
}

func (s *Storage[T]) lookup(id identity.RawID) *slot[T] {
	index := int(id.Index())
	if id.Epoch() == 0 || index >= len(s.slots) {
		return nil
	}
	sl := &s.slots[index]
	if !sl.occupied || sl.epoch != id.Epoch() {
		return nil
	}
	return sl
}
