// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package registry binds generational identities to resource values for one
// resource kind.
//
// A Registry pairs an identity.Manager, guarded by a mutex, with a
// storage.Storage, guarded by an RWMutex. When both are needed the
// allocator lock is taken first. Registries never call each other, so a
// caller that touches several kinds holds at most one Registry's locks at a
// time.
//
// Every failure is returned as *Error wrapping an identity sentinel.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"

	"github.com/gogpu/hub/identity"
	"github.com/gogpu/hub/storage"
)

// Registry stores values of type T under identities of kind K.
//
// Registry is safe for concurrent use.
type Registry[T any, K identity.Tag] struct {
	kind     identity.Kind
	observer Observer

	identMu  sync.Mutex
	identity *identity.Manager

	mu   sync.RWMutex
	data *storage.Storage[T]
}

// New creates an empty Registry. mode fixes where identities come from for
// the Registry's lifetime. obs may be nil.
func New[T any, K identity.Tag](mode identity.Mode, obs Observer) *Registry[T, K] {
	if obs == nil {
		obs = nopObserver{}
	}
	var k K
	return &Registry[T, K]{
		kind:     k.Kind(),
		observer: obs,
		identity: identity.NewManager(mode),
		data:     storage.New[T](),
	}
}

// Kind returns the resource kind stored by the Registry.
func (r *Registry[T, K]) Kind() identity.Kind { return r.kind }

// Mode returns the identity mode the Registry was created with.
func (r *Registry[T, K]) Mode() identity.Mode { return r.identity.Mode() }

// Alloc issues an identity without binding a value to it. The identity must
// later be passed to Register or Release. LocalAllocation mode only.
func (r *Registry[T, K]) Alloc() (identity.ID[K], error) {
	r.identMu.Lock()
	raw, err := r.identity.Alloc()
	r.identMu.Unlock()
	if err != nil {
		return identity.ID[K]{}, r.fail(OpAlloc, raw, err)
	}
	return identity.FromRaw[K](raw), nil
}

// Release retires an identity obtained from Alloc that was never registered.
func (r *Registry[T, K]) Release(id identity.ID[K]) error {
	raw := id.Raw()

	r.identMu.Lock()
	defer r.identMu.Unlock()

	if err := r.identity.Check(raw); err != nil {
		return r.fail(OpRelease, raw, err)
	}
	r.mu.RLock()
	bound := r.data.Contains(raw)
	r.mu.RUnlock()
	if bound {
		return r.fail(OpRelease, raw, identity.ErrAlreadyRegistered)
	}
	_ = r.identity.Free(raw)
	return nil
}

// Register binds v to id.
//
// In LocalAllocation mode id must come from Alloc. In ExternalIdentity mode
// id is supplied by the client and is recorded with the allocator first.
// Registering into a slot that already holds a value fails with
// identity.ErrAlreadyRegistered and leaves the Registry unchanged.
func (r *Registry[T, K]) Register(id identity.ID[K], v T) error {
	raw := id.Raw()

	r.identMu.Lock()
	defer r.identMu.Unlock()

	if r.identity.Mode() == identity.ExternalIdentity {
		if err := r.identity.Reserve(raw); err != nil {
			return r.fail(OpRegister, raw, err)
		}
	} else if !r.identity.IsLive(raw) {
		return r.fail(OpRegister, raw, identity.ErrStaleHandle)
	}

	r.mu.Lock()
	err := r.data.Insert(raw, v)
	r.mu.Unlock()
	if err != nil {
		return r.fail(OpRegister, raw, err)
	}

	r.registered(raw)
	return nil
}

// RegisterLocal allocates an identity and binds v to it. The allocator and
// table locks are taken one after the other, never together.
// LocalAllocation mode only.
func (r *Registry[T, K]) RegisterLocal(v T) (identity.ID[K], error) {
	r.identMu.Lock()
	raw, err := r.identity.Alloc()
	r.identMu.Unlock()
	if err != nil {
		return identity.ID[K]{}, r.fail(OpRegisterLocal, raw, err)
	}

	r.mu.Lock()
	err = r.data.Insert(raw, v)
	r.mu.Unlock()
	if err != nil {
		r.identMu.Lock()
		_ = r.identity.Free(raw)
		r.identMu.Unlock()
		return identity.ID[K]{}, r.fail(OpRegisterLocal, raw, err)
	}

	r.registered(raw)
	return identity.FromRaw[K](raw), nil
}

// Assign binds v using whichever identity source the Registry's mode
// dictates. In LocalAllocation mode in must be zero and a fresh identity is
// returned; in ExternalIdentity mode in is registered and returned.
func (r *Registry[T, K]) Assign(in identity.ID[K], v T) (identity.ID[K], error) {
	if r.identity.Mode() == identity.LocalAllocation {
		if !in.IsZero() {
			return identity.ID[K]{}, r.fail(OpRegister, in.Raw(), identity.ErrUnexpectedID)
		}
		return r.RegisterLocal(v)
	}
	if in.IsZero() {
		return identity.ID[K]{}, r.fail(OpRegister, in.Raw(), identity.ErrInvalidID)
	}
	if err := r.Register(in, v); err != nil {
		return identity.ID[K]{}, err
	}
	return in, nil
}

// Unregister removes and returns the value bound to id and retires id.
// Afterwards id, and every copy of it, fails lookup even before its index is
// reused. Unregistering the same handle twice fails with
// identity.ErrDoubleFree.
func (r *Registry[T, K]) Unregister(id identity.ID[K]) (T, error) {
	return r.UnregisterIf(id, nil)
}

// UnregisterIf is Unregister guarded by check. check runs under the
// exclusive table lock, after id was validated and before the value is
// removed; if it returns an error the value stays bound and the error is
// returned unchanged. A nil check always passes. check must not call into
// this Registry.
func (r *Registry[T, K]) UnregisterIf(id identity.ID[K], check func(*T) error) (T, error) {
	var zero T
	raw := id.Raw()

	r.identMu.Lock()
	defer r.identMu.Unlock()

	if err := r.identity.Check(raw); err != nil {
		return zero, r.fail(OpUnregister, raw, err)
	}

	r.mu.Lock()
	if check != nil {
		p, err := r.data.Get(raw)
		if err != nil {
			r.mu.Unlock()
			return zero, r.fail(OpUnregister, raw, err)
		}
		if err := check(p); err != nil {
			r.mu.Unlock()
			return zero, err
		}
	}
	v, err := r.data.Remove(raw)
	r.mu.Unlock()
	if err != nil {
		return zero, r.fail(OpUnregister, raw, err)
	}

	if raw.Epoch() == math.MaxUint32 {
		slogger().Warn("registry: epoch wrapped, old handles for this slot may alias",
			"kind", r.kind.String(), "id", raw.String())
	}
	_ = r.identity.Free(raw)

	slogger().Debug("registry: unregistered", "kind", r.kind.String(), "id", raw.String())
	r.observer.Unregistered(r.kind)
	return v, nil
}

// Get returns a copy of the value bound to id.
func (r *Registry[T, K]) Get(id identity.ID[K]) (T, error) {
	r.mu.RLock()
	p, err := r.data.Get(id.Raw())
	var v T
	if err == nil {
		v = *p
	}
	r.mu.RUnlock()

	if err != nil {
		return v, r.fail(OpGet, id.Raw(), err)
	}
	return v, nil
}

// Read calls fn with the value bound to id while holding the shared table
// lock. fn must not modify the value or call into this Registry. An error
// from fn is returned unchanged.
func (r *Registry[T, K]) Read(id identity.ID[K], fn func(*T) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, err := r.data.Get(id.Raw())
	if err != nil {
		return r.fail(OpRead, id.Raw(), err)
	}
	return fn(p)
}

// Write calls fn with the value bound to id while holding the exclusive
// table lock. fn must not call into this Registry. An error from fn is
// returned unchanged.
func (r *Registry[T, K]) Write(id identity.ID[K], fn func(*T) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.data.Get(id.Raw())
	if err != nil {
		return r.fail(OpWrite, id.Raw(), err)
	}
	return fn(p)
}

// Contains reports whether id is bound to a value.
func (r *Registry[T, K]) Contains(id identity.ID[K]) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data.Contains(id.Raw())
}

// Len returns the number of bound values.
func (r *Registry[T, K]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data.Len()
}

// Each calls fn for every bound value in index order while holding the
// shared table lock, until fn returns false. fn must not call into this
// Registry.
func (r *Registry[T, K]) Each(fn func(identity.ID[K], *T) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.data.Each(func(raw identity.RawID, v *T) bool {
		return fn(identity.FromRaw[K](raw), v)
	})
}

// IDs returns the identities of all bound values in index order.
func (r *Registry[T, K]) IDs() []identity.ID[K] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]identity.ID[K], 0, r.data.Len())
	r.data.Each(func(raw identity.RawID, _ *T) bool {
		ids = append(ids, identity.FromRaw[K](raw))
		return true
	})
	return ids
}

// Drain unregisters every bound value and returns them in index order.
func (r *Registry[T, K]) Drain() []T {
	r.identMu.Lock()
	defer r.identMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	var raws []identity.RawID
	r.data.Each(func(raw identity.RawID, _ *T) bool {
		raws = append(raws, raw)
		return true
	})

	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		v, err := r.data.Remove(raw)
		if err != nil {
			continue
		}
		_ = r.identity.Free(raw)
		out = append(out, v)
		r.observer.Unregistered(r.kind)
	}
	if len(out) > 0 {
		slogger().Debug("registry: drained", "kind", r.kind.String(), "count", len(out))
	}
	return out
}

func (r *Registry[T, K]) registered(raw identity.RawID) {
	slogger().Debug("registry: registered", "kind", r.kind.String(), "id", raw.String())
	r.observer.Registered(r.kind)
}

// fail wraps err, logs it and reports it to the observer.
func (r *Registry[T, K]) fail(op Op, raw identity.RawID, err error) error {
	level := slog.LevelDebug
	if errors.Is(err, identity.ErrDoubleFree) || errors.Is(err, identity.ErrAlreadyRegistered) {
		level = slog.LevelWarn
	}
	slogger().Log(context.Background(), level, "registry: rejected",
		"op", string(op), "kind", r.kind.String(), "id", raw.String(), "err", err)
	r.observer.Rejected(r.kind, op, err)
	return &Error{Op: op, Kind: r.kind, ID: raw, Err: err}
}
