// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package registry

import (
	"fmt"

	"github.com/gogpu/hub/identity"
)

// Op names the registry operation that failed.
type Op string

// Registry operations.
const (
	OpAlloc         Op = "alloc"
	OpRegister      Op = "register"
	OpRegisterLocal Op = "register_local"
	OpUnregister    Op = "unregister"
	OpRelease       Op = "release"
	OpGet           Op = "get"
	OpRead          Op = "read"
	OpWrite         Op = "write"
)

// Error describes a failed registry operation. Err is one of the identity
// sentinels, so callers test it with errors.Is:
//
//	if errors.Is(err, identity.ErrStaleHandle) { ... }
type Error struct {
	Op   Op
	Kind identity.Kind
	ID   identity.RawID
	Err  error
}

func (e *Error) Error() string {
	if e.ID.IsZero() {
		return fmt.Sprintf("registry: %s %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("registry: %s %s %s: %v", e.Op, e.Kind, e.ID, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *Error) Unwrap() error { return e.Err }
