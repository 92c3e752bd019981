// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package identity

// MaxReserveGap bounds how far past the current table end an externally
// issued index may land. Clients allocate densely, so a larger jump means a
// corrupt or hostile identity and would otherwise grow the table unbounded.
const MaxReserveGap = 1 << 16

// slotState is the per-index bookkeeping of a Manager. The epoch outlives
// the payload so stale handles stay detectable after the slot is freed.
type slotState struct {
	epoch Epoch
	free  bool
}

// Manager issues and retires identities for one resource kind.
//
// In LocalAllocation mode the most recently freed index is reused first
// (LIFO), with its epoch already bumped by Free. In ExternalIdentity mode the
// caller supplies identities through Reserve.
//
// Manager is not safe for concurrent use.
type Manager struct {
	mode  Mode
	slots []slotState
	free  []Index
	live  int
}

// NewManager creates an empty Manager in the given mode.
func NewManager(mode Mode) *Manager {
	return &Manager{
		mode:  mode,
		slots: make([]slotState, 0, 16),
	}
}

// Mode returns the mode the Manager was created with.
func (m *Manager) Mode() Mode { return m.mode }

// Alloc issues a new identity. It never fails in LocalAllocation mode and
// returns ErrExternalIdentity otherwise. Amortized O(1).
func (m *Manager) Alloc() (RawID, error) {
	if m.mode != LocalAllocation {
		return RawID{}, ErrExternalIdentity
	}

	if n := len(m.free); n > 0 {
		index := m.free[n-1]
		m.free = m.free[:n-1]
		s := &m.slots[index]
		s.free = false
		m.live++
		return RawID{index: index, epoch: s.epoch}, nil
	}

	index := Index(len(m.slots))
	m.slots = append(m.slots, slotState{epoch: 1})
	m.live++
	return RawID{index: index, epoch: 1}, nil
}

// Reserve records an externally issued identity as live. Only valid in
// ExternalIdentity mode.
//
// The epoch must be at least the slot's current epoch, so an identity the
// client already retired cannot be bound again.
func (m *Manager) Reserve(id RawID) error {
	if m.mode != ExternalIdentity {
		return ErrLocalAllocation
	}
	if id.epoch == 0 {
		return ErrInvalidID
	}
	if int(id.index) >= len(m.slots)+MaxReserveGap {
		return ErrInvalidID
	}

	for int(id.index) >= len(m.slots) {
		m.slots = append(m.slots, slotState{free: true})
	}

	s := &m.slots[id.index]
	if !s.free {
		return ErrAlreadyRegistered
	}
	if id.epoch < s.epoch {
		return ErrStaleHandle
	}
	s.epoch = id.epoch
	s.free = false
	m.live++
	return nil
}

// Check reports the error Free would return for id, without changing
// any state.
func (m *Manager) Check(id RawID) error {
	if id.epoch == 0 || int(id.index) >= len(m.slots) {
		return ErrStaleHandle
	}
	s := m.slots[id.index]
	if s.free {
		if s.epoch == 0 {
			// Gap slot created by Reserve, never issued.
			return ErrStaleHandle
		}
		return ErrDoubleFree
	}
	if s.epoch != id.epoch {
		return ErrStaleHandle
	}
	return nil
}

// Free retires id. The slot's epoch is bumped before Free returns, so id and
// every copy of it are invalid from here on.
//
// The double-free check is unconditional: a second Free of the same handle
// returns ErrDoubleFree and the free-list keeps the index exactly once.
func (m *Manager) Free(id RawID) error {
	if err := m.Check(id); err != nil {
		return err
	}

	s := &m.slots[id.index]
	s.epoch++
	if s.epoch == 0 {
		// Wrapped. Zero is the invalid epoch, skip it.
		s.epoch = 1
	}
	s.free = true
	m.live--

	if m.mode == LocalAllocation {
		m.free = append(m.free, id.index)
	}
	return nil
}

// IsLive reports whether id is the current, non-freed identity of its slot.
func (m *Manager) IsLive(id RawID) bool {
	if id.epoch == 0 || int(id.index) >= len(m.slots) {
		return false
	}
	s := m.slots[id.index]
	return !s.free && s.epoch == id.epoch
}

// Epoch returns the current epoch of index, or 0 if the index was never
// issued.
func (m *Manager) Epoch(index Index) Epoch {
	if int(index) >= len(m.slots) {
		return 0
	}
	return m.slots[index].epoch
}

// Len returns the number of live identities.
func (m *Manager) Len() int { return m.live }

// Capacity returns the number of slots ever issued or reserved.
func (m *Manager) Capacity() int { return len(m.slots) }

// FreeLen returns the length of the free-list. Always zero in
// ExternalIdentity mode.
func (m *Manager) FreeLen() int { return len(m.free) }
