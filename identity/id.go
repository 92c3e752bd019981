// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package identity

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Index is the slot position of a handle.
type Index = uint32

// Epoch is the generation counter of a slot.
type Epoch = uint32

// rawIDSize is the length of the binary encoding of a RawID.
const rawIDSize = 8

// RawID is an untyped (index, epoch) handle.
//
// The zero value is never issued: epochs start at 1. It is used as the
// "no id" sentinel throughout the API.
type RawID struct {
	index Index
	epoch Epoch
}

// NewRawID constructs a RawID from its parts.
func NewRawID(index Index, epoch Epoch) RawID {
	return RawID{index: index, epoch: epoch}
}

// Index returns the slot index.
func (id RawID) Index() Index { return id.index }

// Epoch returns the generation of the slot this handle was issued for.
func (id RawID) Epoch() Epoch { return id.epoch }

// IsZero reports whether id is the zero (invalid) identity.
func (id RawID) IsZero() bool { return id.index == 0 && id.epoch == 0 }

// String renders the identity for logs.
func (id RawID) String() string {
	return fmt.Sprintf("Id(%d,%d)", id.index, id.epoch)
}

// MarshalBinary encodes the identity as little-endian index then epoch.
func (id RawID) MarshalBinary() ([]byte, error) {
	return id.AppendBinary(make([]byte, 0, rawIDSize))
}

// AppendBinary appends the binary encoding of id to b.
func (id RawID) AppendBinary(b []byte) ([]byte, error) {
	b = binary.LittleEndian.AppendUint32(b, id.index)
	b = binary.LittleEndian.AppendUint32(b, id.epoch)
	return b, nil
}

// UnmarshalBinary decodes an identity produced by MarshalBinary.
func (id *RawID) UnmarshalBinary(data []byte) error {
	if len(data) != rawIDSize {
		return fmt.Errorf("%w: binary id must be %d bytes, got %d", ErrInvalidID, rawIDSize, len(data))
	}
	id.index = binary.LittleEndian.Uint32(data[0:4])
	id.epoch = binary.LittleEndian.Uint32(data[4:8])
	return nil
}

// MarshalText encodes the identity as "index:epoch".
func (id RawID) MarshalText() ([]byte, error) {
	b := strconv.AppendUint(nil, uint64(id.index), 10)
	b = append(b, ':')
	return strconv.AppendUint(b, uint64(id.epoch), 10), nil
}

// UnmarshalText decodes an identity produced by MarshalText.
func (id *RawID) UnmarshalText(text []byte) error {
	parsed, err := ParseRawID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseRawID parses the "index:epoch" text form.
func ParseRawID(s string) (RawID, error) {
	idx, ep, ok := strings.Cut(s, ":")
	if !ok {
		return RawID{}, fmt.Errorf("%w: %q is not index:epoch", ErrInvalidID, s)
	}
	index, err := strconv.ParseUint(idx, 10, 32)
	if err != nil {
		return RawID{}, fmt.Errorf("%w: index: %w", ErrInvalidID, err)
	}
	epoch, err := strconv.ParseUint(ep, 10, 32)
	if err != nil {
		return RawID{}, fmt.Errorf("%w: epoch: %w", ErrInvalidID, err)
	}
	return RawID{index: Index(index), epoch: Epoch(epoch)}, nil
}

// Tag is implemented by the zero-size marker types that give each resource
// kind its own handle type.
type Tag interface {
	Kind() Kind
}

// ID is a RawID tagged with a resource kind. IDs of different kinds are
// distinct Go types and cannot be mixed up.
type ID[K Tag] struct {
	raw RawID
}

// FromRaw tags a raw identity with kind K.
func FromRaw[K Tag](raw RawID) ID[K] {
	return ID[K]{raw: raw}
}

// Raw returns the untyped identity.
func (id ID[K]) Raw() RawID { return id.raw }

// Index returns the slot index.
func (id ID[K]) Index() Index { return id.raw.index }

// Epoch returns the slot generation.
func (id ID[K]) Epoch() Epoch { return id.raw.epoch }

// IsZero reports whether id is the zero (invalid) identity.
func (id ID[K]) IsZero() bool { return id.raw.IsZero() }

// Kind returns the resource kind of the tag.
func (id ID[K]) Kind() Kind {
	var k K
	return k.Kind()
}

// String renders the identity with its kind, e.g. "buffer(3,2)".
func (id ID[K]) String() string {
	return fmt.Sprintf("%s(%d,%d)", id.Kind(), id.raw.index, id.raw.epoch)
}

// MarshalBinary encodes the identity without its kind.
func (id ID[K]) MarshalBinary() ([]byte, error) { return id.raw.MarshalBinary() }

// UnmarshalBinary decodes an identity produced by MarshalBinary.
func (id *ID[K]) UnmarshalBinary(data []byte) error { return id.raw.UnmarshalBinary(data) }

// MarshalText encodes the identity as "index:epoch".
func (id ID[K]) MarshalText() ([]byte, error) { return id.raw.MarshalText() }

// UnmarshalText decodes an identity produced by MarshalText.
func (id *ID[K]) UnmarshalText(text []byte) error { return id.raw.UnmarshalText(text) }
