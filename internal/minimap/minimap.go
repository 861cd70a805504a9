// Package minimap renders a top-down picture of the arena from a horde
// snapshot.
package minimap

import (
	"fmt"
	"image/color"
	"io"
	"sync"

	"zombie-horde/internal/horde"

	"github.com/fogleman/gg"
)

const (
	MinSize     = 64
	MaxSize     = 1024
	DefaultSize = 256
)

var (
	backgroundColor = color.RGBA{12, 12, 28, 255}
	gridColor       = color.RGBA{30, 30, 45, 255}
	borderColor     = color.RGBA{90, 90, 110, 255}
	playerColor     = color.RGBA{80, 200, 255, 255}
	warningColor    = color.RGBA{255, 60, 40, 255}
	dyingColor      = color.RGBA{70, 70, 70, 160}
)

// SnapshotSource supplies the latest published snapshot.
type SnapshotSource interface {
	LatestSnapshot(dst *horde.Snapshot) bool
}

// ClampSize keeps a requested edge length inside [MinSize, MaxSize]. Zero
// selects DefaultSize.
func ClampSize(size int) int {
	switch {
	case size == 0:
		return DefaultSize
	case size < MinSize:
		return MinSize
	case size > MaxSize:
		return MaxSize
	}
	return size
}

// Renderer draws snapshots. Drawing contexts are reused per size, so a
// Renderer is cheap to call every frame; calls are serialized.
type Renderer struct {
	mu       sync.Mutex
	contexts map[int]*gg.Context
	snap     horde.Snapshot
}

// NewRenderer creates a renderer.
func NewRenderer() *Renderer {
	return &Renderer{contexts: make(map[int]*gg.Context)}
}

// WritePNG renders snap and PNG-encodes it to w.
func (r *Renderer) WritePNG(w io.Writer, snap *horde.Snapshot, size int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.encode(w, snap, size)
}

// WriteLatestPNG renders the source's latest snapshot. It reports false
// when nothing has been published yet.
func (r *Renderer) WriteLatestPNG(w io.Writer, src SnapshotSource, size int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !src.LatestSnapshot(&r.snap) {
		return false, nil
	}
	return true, r.encode(w, &r.snap, size)
}

func (r *Renderer) encode(w io.Writer, snap *horde.Snapshot, size int) error {
	dc := r.draw(snap, ClampSize(size))
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode minimap: %w", err)
	}
	return nil
}

func (r *Renderer) context(size int) *gg.Context {
	dc, ok := r.contexts[size]
	if !ok {
		dc = gg.NewContext(size, size)
		r.contexts[size] = dc
	}
	return dc
}

func (r *Renderer) draw(snap *horde.Snapshot, size int) *gg.Context {
	dc := r.context(size)
	px := float64(size)
	arena := snap.ArenaSize
	if arena <= 0 {
		arena = 1
	}
	scale := px / (2 * arena)
	// north (+z) is up
	toScreen := func(x, z float64) (float64, float64) {
		return (x + arena) * scale, (arena - z) * scale
	}

	dc.SetColor(backgroundColor)
	dc.DrawRectangle(0, 0, px, px)
	dc.Fill()

	dc.SetColor(gridColor)
	dc.SetLineWidth(1)
	step := px / 8
	for i := 1; i < 8; i++ {
		v := float64(i) * step
		dc.DrawLine(v, 0, v, px)
		dc.Stroke()
		dc.DrawLine(0, v, px, v)
		dc.Stroke()
	}

	dc.SetColor(borderColor)
	dc.SetLineWidth(2)
	dc.DrawRectangle(1, 1, px-2, px-2)
	dc.Stroke()

	dotR := max(1.5, 0.5*scale)

	for _, w := range snap.Warnings {
		x, y := toScreen(w.X, w.Z)
		dc.SetRGBA255(int(warningColor.R), int(warningColor.G), int(warningColor.B), int(80+175*w.Opacity))
		dc.SetLineWidth(1.5)
		dc.DrawCircle(x, y, dotR*(1+w.Scale))
		dc.Stroke()
	}

	for _, ent := range snap.Entities {
		x, y := toScreen(ent.X, ent.Z)
		if ent.Dying {
			dc.SetColor(dyingColor)
		} else {
			dc.SetHexColor(ent.Color)
		}
		dc.DrawCircle(x, y, dotR)
		dc.Fill()
	}

	for _, ex := range snap.Explosions {
		x, y := toScreen(ex.X, ex.Z)
		dc.SetRGBA(1, 0.6, 0.1, 0.8*ex.Intensity)
		dc.DrawCircle(x, y, max(dotR, ex.Radius*scale))
		dc.Fill()
	}

	x, y := toScreen(snap.Player.X, snap.Player.Z)
	dc.SetColor(playerColor)
	dc.DrawCircle(x, y, dotR*1.6)
	dc.Fill()

	return dc
}
