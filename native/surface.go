// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import "github.com/gogpu/hub"

// RegisterSurface tracks a presentation surface created by the windowing
// layer. The hub does not create or present surfaces itself.
func (g *Global) RegisterSurface(surface hub.Surface, in hub.SurfaceID) (hub.SurfaceID, error) {
	id, err := g.hub.Surfaces.Assign(in, surface)
	if err != nil {
		return hub.SurfaceID{}, errorf("register surface", err)
	}
	return id, nil
}

// ResizeSurface records a new size for surface.
func (g *Global) ResizeSurface(surface hub.SurfaceID, width, height uint32) error {
	err := g.hub.Surfaces.Write(surface, func(s *hub.Surface) error {
		s.Width, s.Height = width, height
		return nil
	})
	if err != nil {
		return errorf("resize surface", err)
	}
	return nil
}

// DestroySurface stops tracking surface. Releasing its target is up to the
// windowing layer.
func (g *Global) DestroySurface(surface hub.SurfaceID) error {
	if _, err := g.hub.Surfaces.Unregister(surface); err != nil {
		return errorf("destroy surface", err)
	}
	return nil
}
