// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

type graveKind int

const (
	graveBuffer graveKind = iota
)

type grave struct {
	kind  graveKind
	index uint32

	buffer *Buffer

	// requested is the number of frames submitted when deletion was
	// requested, all of them must complete before destruction.
	requested uint64
}

func (g grave) destroy() {
	switch g.kind {
	case graveBuffer:
		g.buffer.Release()
	}
}

// Graveyard defers destruction of removed resources until the GPU
// is done with every frame that could still use them.
type Graveyard struct {
	graves []grave

	// reclaim hands a container slot back once its resource is destroyed.
	reclaim func(kind graveKind, index uint32)
}

// NewGraveyard returns a Graveyard reclaiming destroyed buffer
// slots of buffers.
func NewGraveyard(buffers *Container[*Buffer]) *Graveyard {
	return &Graveyard{
		reclaim: func(kind graveKind, index uint32) {
			if kind == graveBuffer {
				buffers.Reclaim(index)
			}
		},
	}
}

// BuryBuffer schedules a buffer removed from slot index for destruction
// once frame requested completed.
func (g *Graveyard) BuryBuffer(index uint32, b *Buffer, requested uint64) {
	g.graves = append(g.graves, grave{
		kind:      graveBuffer,
		index:     index,
		buffer:    b,
		requested: requested,
	})
}

// Collect destroys every resource whose frames up to completed finished
// and returns how many were destroyed.
func (g *Graveyard) Collect(completed uint64) int {
	kept := g.graves[:0]
	var destroyed int
	for _, gr := range g.graves {
		if gr.requested > completed {
			kept = append(kept, gr)
			continue
		}
		gr.destroy()
		g.reclaim(gr.kind, gr.index)
		destroyed++
	}
	for idx := len(kept); idx < len(g.graves); idx++ {
		g.graves[idx] = grave{}
	}
	g.graves = kept
	return destroyed
}

// Drain destroys everything, the device must be idle.
func (g *Graveyard) Drain() int {
	n := len(g.graves)
	for _, gr := range g.graves {
		gr.destroy()
		g.reclaim(gr.kind, gr.index)
	}
	g.graves = nil
	return n
}

// Len returns the number of resources awaiting destruction.
func (g *Graveyard) Len() int {
	return len(g.graves)
}
