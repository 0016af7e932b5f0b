package engine

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rwcma/capitalab/pkg/models"
)

const isinSequenceMod = 10000

// ISINAllocator mints virtual instrument identifiers of the form
// RW{year}{EQ|BD|NT}{4-digit-sequence}. The sequence is an atomic counter,
// not a wall-clock truncation, so concurrent allocations never collide
// within one process. Collisions across restarts remain possible and are an
// accepted weakness of the virtual scheme.
type ISINAllocator struct {
	seq atomic.Uint64
}

// NewISINAllocator creates an allocator whose sequence starts after seed.
func NewISINAllocator(seed uint64) *ISINAllocator {
	allocator := &ISINAllocator{}
	allocator.seq.Store(seed)

	return allocator
}

// Next returns a fresh virtual ISIN for the instrument type.
func (a *ISINAllocator) Next(instrumentType models.InstrumentType, now time.Time) string {
	sequence := a.seq.Add(1) % isinSequenceMod

	return fmt.Sprintf("RW%d%s%04d", now.Year(), instrumentType.TypeCode(), sequence)
}
