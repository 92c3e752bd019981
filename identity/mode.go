// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package identity

import (
	"fmt"
	"strings"
)

// Mode selects where identities come from.
type Mode uint8

const (
	// LocalAllocation generates identities inside the process (single-process
	// deployments).
	LocalAllocation Mode = iota

	// ExternalIdentity accepts identities issued by a remote client
	// (split client/server deployments, command-stream replay).
	ExternalIdentity
)

// String returns "local" or "external".
func (m Mode) String() string {
	switch m {
	case LocalAllocation:
		return "local"
	case ExternalIdentity:
		return "external"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// ParseMode parses "local" / "local_allocation" or "external" /
// "external_identity".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "local", "local_allocation":
		return LocalAllocation, nil
	case "external", "external_identity":
		return ExternalIdentity, nil
	default:
		return 0, fmt.Errorf("identity: unknown mode %q", s)
	}
}

// MarshalText encodes the mode name.
func (m Mode) MarshalText() ([]byte, error) {
	if m > ExternalIdentity {
		return nil, fmt.Errorf("identity: invalid mode %d", uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
