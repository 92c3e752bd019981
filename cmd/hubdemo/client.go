// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"log"
	"sync"

	"github.com/gogpu/hub/identity"
)

// client stands in for the process that owns identity allocation in split
// mode. Identities cross to the hub in their "index:epoch" text form.
type client struct {
	mu       sync.Mutex
	managers map[identity.Kind]*identity.Manager
}

func newClient() *client {
	c := &client{managers: make(map[identity.Kind]*identity.Manager)}
	for _, k := range identity.Kinds() {
		c.managers[k] = identity.NewManager(identity.LocalAllocation)
	}
	return c
}

func (c *client) alloc(kind identity.Kind) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := c.managers[kind].Alloc()
	if err != nil {
		log.Fatalf("client: alloc %v: %v", kind, err)
	}
	wire, _ := raw.MarshalText()
	return wire
}

func (c *client) free(kind identity.Kind, raw identity.RawID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.managers[kind].Free(raw); err != nil {
		log.Printf("client: free %v %v: %v", kind, raw, err)
	}
}

// nextID returns the identity to pass to a hub operation: zero without a
// client, otherwise a fresh client identity decoded from the wire.
func nextID[K identity.Tag](c *client) identity.ID[K] {
	if c == nil {
		return identity.ID[K]{}
	}
	var k K
	var raw identity.RawID
	if err := raw.UnmarshalText(c.alloc(k.Kind())); err != nil {
		log.Fatalf("client: decode %v identity: %v", k.Kind(), err)
	}
	return identity.FromRaw[K](raw)
}

// retire returns id to the client after the hub released it.
func retire[K identity.Tag](c *client, id identity.ID[K]) {
	if c == nil {
		return
	}
	c.free(id.Kind(), id.Raw())
}
