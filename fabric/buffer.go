//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package fabric

import (
	"errors"

	"github.com/markkurossi/spdz/field"
)

// Slot identifies one position in a Batch. Slots are handed out in
// append order and the peer's values come back aligned by slot.
type Slot int

// Exchanger swaps a batch of field elements with the peer. It is
// implemented by spdz.Session.
type Exchanger interface {
	ExchangeBatch(vals []field.Element) ([]field.Element, error)
}

// Batch accumulates the outgoing field elements of one dependency
// level and performs the level's single network exchange. Growth is
// amortized doubling, so appending is O(1) regardless of level width.
// The slot order is strict FIFO: the peer's batch is aligned
// positionally, never reordered.
type Batch struct {
	vals []field.Element
	peer []field.Element
}

// NewBatch creates a batch buffer with the argument initial capacity.
func NewBatch(capacity int) *Batch {
	if capacity < 1 {
		capacity = 1
	}
	return &Batch{
		vals: make([]field.Element, 0, capacity),
	}
}

// Append adds a value and returns its slot.
func (b *Batch) Append(v field.Element) Slot {
	b.grow(1)
	b.vals = append(b.vals, v)
	return Slot(len(b.vals) - 1)
}

// Reserve allocates count consecutive slots, to be filled with Set.
// It returns the first slot of the run.
func (b *Batch) Reserve(count int) Slot {
	b.grow(count)
	s := Slot(len(b.vals))
	for i := 0; i < count; i++ {
		b.vals = append(b.vals, field.Element{})
	}
	return s
}

// Set fills a reserved slot.
func (b *Batch) Set(s Slot, v field.Element) {
	b.vals[s] = v
}

// Len returns the number of appended values.
func (b *Batch) Len() int {
	return len(b.vals)
}

// Exchange flushes the batch in one network exchange and stores the
// peer's values. This is the only point where the batch touches the
// network.
func (b *Batch) Exchange(x Exchanger) error {
	peer, err := x.ExchangeBatch(b.vals)
	if err != nil {
		return err
	}
	b.peer = peer
	return nil
}

// Own returns this party's value at the slot.
func (b *Batch) Own(s Slot) field.Element {
	return b.vals[s]
}

// Peer returns the peer's value at the slot. Exchange must have
// completed.
func (b *Batch) Peer(s Slot) (field.Element, error) {
	if b.peer == nil {
		return field.Element{}, errors.New("fabric: batch not exchanged")
	}
	return b.peer[s], nil
}

// Opened returns the sum of both parties' values at the slot: the
// opened value when the slot carries additive shares.
func (b *Batch) Opened(s Slot) field.Element {
	return b.vals[s].Add(b.peer[s])
}

// Reset clears the batch for the next level, keeping the backing
// storage.
func (b *Batch) Reset() {
	b.vals = b.vals[:0]
	b.peer = nil
}

// grow ensures capacity for n more values, doubling the backing array
// when it is full.
func (b *Batch) grow(n int) {
	need := len(b.vals) + n
	if need <= cap(b.vals) {
		return
	}
	newCap := cap(b.vals) * 2
	if newCap < need {
		newCap = need
	}
	vals := make([]field.Element, len(b.vals), newCap)
	copy(vals, b.vals)
	b.vals = vals
}
