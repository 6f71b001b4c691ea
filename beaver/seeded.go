//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package beaver

import (
	"golang.org/x/crypto/chacha20"

	"github.com/markkurossi/spdz/field"
)

// Seeded is a deterministic source that expands a seed shared by both
// parties into correlated randomness with no communication. Both
// parties can derive the global values from the seed, so the source
// offers no privacy; it exists for tests and benchmarks.
type Seeded struct {
	party   int
	prg     *chacha20.Cipher
	bitPRG  *chacha20.Cipher
	triples int
	bits    int
}

// NewSeeded creates a seeded source for the argument party holding at
// most the argument number of triples and shared bits. Both parties
// must use the same seed.
func NewSeeded(seed [32]byte, party, triples, bits int) (*Seeded, error) {
	prg, err := newPRG(seed, 0)
	if err != nil {
		return nil, err
	}
	bitPRG, err := newPRG(seed, 1)
	if err != nil {
		return nil, err
	}
	return &Seeded{
		party:   party,
		prg:     prg,
		bitPRG:  bitPRG,
		triples: triples,
		bits:    bits,
	}, nil
}

func newPRG(seed [32]byte, stream byte) (*chacha20.Cipher, error) {
	nonce := make([]byte, chacha20.NonceSize)
	nonce[0] = stream
	return chacha20.NewUnauthenticatedCipher(seed[:], nonce)
}

func prgElement(prg *chacha20.Cipher) field.Element {
	buf := make([]byte, field.Size)
	prg.XORKeyStream(buf, buf)
	return field.FromBytes(buf)
}

// Triple implements Source.Triple. Both parties expand the same
// global (a, b, c=a*b) and the party 0 shares; party 1 takes the
// complements, so the shares line up without communication.
func (s *Seeded) Triple() (Triple, error) {
	if s.triples <= 0 {
		return Triple{}, ErrExhausted
	}
	s.triples--

	a := prgElement(s.prg)
	b := prgElement(s.prg)
	c := a.Mul(b)

	a0 := prgElement(s.prg)
	b0 := prgElement(s.prg)
	c0 := prgElement(s.prg)

	if s.party == 0 {
		return Triple{A: a0, B: b0, C: c0}, nil
	}
	return Triple{
		A: a.Sub(a0),
		B: b.Sub(b0),
		C: c.Sub(c0),
	}, nil
}

// Discard implements Source.Discard. The seed expansion state is
// dropped with the remaining capacity.
func (s *Seeded) Discard() {
	s.triples = 0
	s.bits = 0
	s.prg = nil
	s.bitPRG = nil
}

// SharedBit implements Source.SharedBit.
func (s *Seeded) SharedBit() (field.Element, error) {
	if s.bits <= 0 {
		return field.Element{}, ErrExhausted
	}
	s.bits--

	buf := make([]byte, 1)
	s.bitPRG.XORKeyStream(buf, buf)
	bit := field.FromUint64(uint64(buf[0] & 1))

	b0 := prgElement(s.bitPRG)
	if s.party == 0 {
		return b0, nil
	}
	return bit.Sub(b0), nil
}
