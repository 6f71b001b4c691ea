//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package beaver

import (
	"crypto/rand"
	"fmt"

	"github.com/markkurossi/spdz/field"
)

// Deliverer abstracts the channel a dealer source uses to distribute
// shares. It is satisfied by link.Link.
type Deliverer interface {
	SendBatch(vals []field.Element) error
	RecvBatch(count int) ([]field.Element, error)
}

// Dealer is a source where party 0 deals the correlated randomness:
// it samples global triples and bits, keeps random shares for itself
// and sends the complements to party 1. The dealer learns the global
// values, so the source is only as trustworthy as party 0.
type Dealer struct {
	party   int
	triples []Triple
	bits    []field.Element
}

// NewDealer creates a dealer source for the argument party and
// distributes count triples and bitCount shared bits over the
// channel.
func NewDealer(ch Deliverer, party, count, bitCount int) (*Dealer, error) {
	d := &Dealer{
		party: party,
	}
	if party == 0 {
		if err := d.deal(ch, count, bitCount); err != nil {
			return nil, err
		}
	} else {
		if err := d.receive(ch, count, bitCount); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Dealer) deal(ch Deliverer, count, bitCount int) error {
	// Complement shares for party 1, sent as one batch: 3 elements
	// per triple followed by one element per bit.
	batch := make([]field.Element, 0, 3*count+bitCount)

	for i := 0; i < count; i++ {
		vals, err := randomElements(5)
		if err != nil {
			return err
		}
		a, b, a0, b0, c0 := vals[0], vals[1], vals[2], vals[3], vals[4]
		c := a.Mul(b)

		d.triples = append(d.triples, Triple{A: a0, B: b0, C: c0})
		batch = append(batch, a.Sub(a0), b.Sub(b0), c.Sub(c0))
	}

	for i := 0; i < bitCount; i++ {
		vals, err := randomElements(2)
		if err != nil {
			return err
		}
		bit := field.FromUint64(uint64(vals[0].Bytes()[field.Size-1] & 1))
		b0 := vals[1]

		d.bits = append(d.bits, b0)
		batch = append(batch, bit.Sub(b0))
	}

	return ch.SendBatch(batch)
}

func (d *Dealer) receive(ch Deliverer, count, bitCount int) error {
	batch, err := ch.RecvBatch(3*count + bitCount)
	if err != nil {
		return fmt.Errorf("dealer: receive shares: %w", err)
	}
	for i := 0; i < count; i++ {
		d.triples = append(d.triples, Triple{
			A: batch[3*i],
			B: batch[3*i+1],
			C: batch[3*i+2],
		})
	}
	d.bits = append(d.bits, batch[3*count:]...)
	return nil
}

func randomElements(n int) ([]field.Element, error) {
	vals := make([]field.Element, n)
	for i := 0; i < n; i++ {
		v, err := field.Random(rand.Reader)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// Triple implements Source.Triple.
func (d *Dealer) Triple() (Triple, error) {
	if len(d.triples) == 0 {
		return Triple{}, ErrExhausted
	}
	t := d.triples[0]
	d.triples = d.triples[1:]
	return t, nil
}

// SharedBit implements Source.SharedBit.
func (d *Dealer) SharedBit() (field.Element, error) {
	if len(d.bits) == 0 {
		return field.Element{}, ErrExhausted
	}
	b := d.bits[0]
	d.bits = d.bits[1:]
	return b, nil
}

// Discard implements Source.Discard.
func (d *Dealer) Discard() {
	discardTriples(d.triples)
	discardElements(d.bits)
	d.triples = nil
	d.bits = nil
}
