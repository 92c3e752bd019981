// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package registry

import "github.com/gogpu/hub/identity"

// Observer receives the outcome of registry operations. Implementations
// must be safe for concurrent use and must not call back into the registry.
type Observer interface {
	Registered(kind identity.Kind)
	Unregistered(kind identity.Kind)
	Rejected(kind identity.Kind, op Op, err error)
}

type nopObserver struct{}

func (nopObserver) Registered(identity.Kind)          {}
func (nopObserver) Unregistered(identity.Kind)        {}
func (nopObserver) Rejected(identity.Kind, Op, error) {}
