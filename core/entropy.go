package core

import (
	"encoding/binary"
	"io"
	"math/rand/v2"
)

// SeedSize is the number of hardware random bytes used to seed the generator
const SeedSize = 16

// Entropy is the shared pseudo-random source. Draws are toy-grade: the
// mapping into a range keeps the modulo bias.
type Entropy struct {
	src rand.Source
}

var entropy *Entropy

// InitEntropy creates the entropy source. The generator is first built from
// a fixed seed, then reseeded from SeedSize bytes of hw; if hw cannot
// deliver them the fixed seed is kept.
func InitEntropy(hw io.Reader) {
	pcg := rand.NewPCG(1, 0)

	var seed [SeedSize]byte
	if hw != nil {
		if _, err := io.ReadFull(hw, seed[:]); err == nil {
			pcg.Seed(binary.LittleEndian.Uint64(seed[:8]), binary.LittleEndian.Uint64(seed[8:]))
		}
	}

	InitEntropySource(pcg)
}

// InitEntropySource installs src as the raw draw stream. The board uses
// InitEntropy; the simulator and tests use this to get a known stream.
func InitEntropySource(src rand.Source) {
	free(func() {
		entropy = &Entropy{src: src}
	})
}

// NextInRange maps one raw draw into [low, high) as low + raw mod (high-low).
// This deliberately differs from the (raw+low) mod high mapping, which can
// return values below low.
// high must be greater than low: an empty range is a caller bug and faults
// with a division by zero.
// Caller holds the critical section.
func (e *Entropy) NextInRange(low, high uint32) uint32 {
	raw := uint32(e.src.Uint64())
	return low + raw%(high-low)
}

// RandomInRange draws from the shared source. ok is false when the source
// has not been initialized yet, in which case callers skip their update.
func RandomInRange(low, high uint32) (v uint32, ok bool) {
	free(func() {
		if entropy == nil {
			return
		}
		v, ok = entropy.NextInRange(low, high), true
	})
	return v, ok
}
