// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package identity

import (
	"encoding/json"
	"errors"
	"testing"
)

type bufferTag struct{}

func (bufferTag) Kind() Kind { return KindBuffer }

type samplerTag struct{}

func (samplerTag) Kind() Kind { return KindSampler }

func TestRawIDZero(t *testing.T) {
	var id RawID
	if !id.IsZero() {
		t.Error("zero RawID: IsZero() = false")
	}
	if NewRawID(0, 1).IsZero() {
		t.Error("Id(0,1): IsZero() = true")
	}
}

func TestRawIDBinary(t *testing.T) {
	id := NewRawID(7, 0x01020304)

	data, err := id.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	want := []byte{7, 0, 0, 0, 4, 3, 2, 1}
	if string(data) != string(want) {
		t.Errorf("MarshalBinary() = %v, want %v", data, want)
	}

	var got RawID
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary() error = %v", err)
	}
	if got != id {
		t.Errorf("UnmarshalBinary() = %v, want %v", got, id)
	}

	if err := got.UnmarshalBinary(data[:5]); !errors.Is(err, ErrInvalidID) {
		t.Errorf("UnmarshalBinary(short) error = %v, want ErrInvalidID", err)
	}
}

func TestParseRawID(t *testing.T) {
	tests := []struct {
		in      string
		want    RawID
		wantErr bool
	}{
		{"0:1", NewRawID(0, 1), false},
		{"12:4294967295", NewRawID(12, 4294967295), false},
		{"12", RawID{}, true},
		{"a:1", RawID{}, true},
		{"1:-1", RawID{}, true},
		{"4294967296:1", RawID{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRawID(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidID) {
					t.Errorf("ParseRawID(%q) error = %v, want ErrInvalidID", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRawID(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseRawID(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTypedID(t *testing.T) {
	raw := NewRawID(3, 2)
	id := FromRaw[bufferTag](raw)

	if id.Kind() != KindBuffer {
		t.Errorf("Kind() = %v, want buffer", id.Kind())
	}
	if id.String() != "buffer(3,2)" {
		t.Errorf("String() = %q, want %q", id.String(), "buffer(3,2)")
	}
	if id.Raw() != raw || id.Index() != 3 || id.Epoch() != 2 {
		t.Errorf("accessors disagree with raw %v: %v", raw, id)
	}

	var zero ID[samplerTag]
	if !zero.IsZero() || zero.Kind() != KindSampler {
		t.Errorf("zero ID[samplerTag] = %v", zero)
	}
}

func TestTypedIDJSON(t *testing.T) {
	type message struct {
		Buffer ID[bufferTag] `json:"buffer"`
	}

	in := message{Buffer: FromRaw[bufferTag](NewRawID(9, 5))}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"buffer":"9:5"}` {
		t.Errorf("Marshal() = %s", data)
	}

	var out message
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out != in {
		t.Errorf("Unmarshal() = %+v, want %+v", out, in)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"buffer", KindBuffer},
		{"bind-group-layout", KindBindGroupLayout},
		{"RENDER_PASS", KindRenderPass},
		{" surface ", KindSurface},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if err != nil {
			t.Errorf("ParseKind(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseKind("framebuffer"); err == nil {
		t.Error("ParseKind(framebuffer) succeeded")
	}
}

func TestKindsOrder(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != int(KindCount) || len(kinds) != 17 {
		t.Fatalf("len(Kinds()) = %d, want 17", len(kinds))
	}
	if kinds[0] != KindInstance || kinds[len(kinds)-1] != KindSurface {
		t.Errorf("Kinds() = %v", kinds)
	}
	for _, k := range kinds {
		text, err := k.MarshalText()
		if err != nil {
			t.Fatalf("%v.MarshalText() error = %v", k, err)
		}
		var back Kind
		if err := back.UnmarshalText(text); err != nil || back != k {
			t.Errorf("UnmarshalText(%s) = %v, %v", text, back, err)
		}
	}
	if _, err := KindCount.MarshalText(); err == nil {
		t.Error("KindCount.MarshalText() succeeded")
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"local", LocalAllocation, false},
		{"local_allocation", LocalAllocation, false},
		{"External", ExternalIdentity, false},
		{"external-identity", ExternalIdentity, false},
		{"remote", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
