//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package beaver

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/markkurossi/mpc/ot"
	"github.com/markkurossi/mpc/p2p"
	"github.com/markkurossi/mpc/vole"

	"github.com/markkurossi/spdz/field"
)

// Generator produces correlated randomness with the peer using
// oblivious-transfer based VOLE: each party samples its shares
// locally and the cross products are computed with two VOLE
// directions, so neither party learns the global values.
type Generator struct {
	party   int
	conn    *p2p.Conn
	oti     ot.OT
	modulus *big.Int
	triples []Triple
	bits    []field.Element
}

// NewGenerator creates a VOLE-backed generator for the argument party
// over the connection. The base OT runs its setup inside each VOLE
// direction, so the parties must drive the generator in lockstep.
func NewGenerator(party int, conn *p2p.Conn, oti ot.OT) (*Generator, error) {
	if oti == nil {
		return nil, errors.New("beaver: no base OT")
	}
	return &Generator{
		party:   party,
		conn:    conn,
		oti:     oti,
		modulus: field.Modulus(),
	}, nil
}

// Generate fills the generator with count triples and bitCount shared
// bits. Both parties must call Generate with the same arguments.
func (g *Generator) Generate(count, bitCount int) error {
	if count > 0 {
		if err := g.generateTriples(count); err != nil {
			return err
		}
	}
	if bitCount > 0 {
		if err := g.generateBits(bitCount); err != nil {
			return err
		}
	}
	return nil
}

// generateTriples samples local a and b shares and completes the c
// shares with two VOLE directions:
//
//	c = (a0+a1)(b0+b1) = a0*b0 + a0*b1 + a1*b0 + a1*b1
//
// where each cross term is additively shared by one VOLE run.
func (g *Generator) generateTriples(count int) error {
	as := make([]field.Element, count)
	bs := make([]field.Element, count)
	for i := 0; i < count; i++ {
		var err error
		if as[i], err = field.Random(rand.Reader); err != nil {
			return err
		}
		if bs[i], err = field.Random(rand.Reader); err != nil {
			return err
		}
	}

	// Direction 1: party 0's a against party 1's b.
	term1, err := g.crossTerm(as, bs, g.party == 0)
	if err != nil {
		return fmt.Errorf("beaver: cross term 1: %w", err)
	}
	// Direction 2: party 1's a against party 0's b.
	term2, err := g.crossTerm(as, bs, g.party == 1)
	if err != nil {
		return fmt.Errorf("beaver: cross term 2: %w", err)
	}

	for i := 0; i < count; i++ {
		c := as[i].Mul(bs[i]).Add(term1[i]).Add(term2[i])
		g.triples = append(g.triples, Triple{A: as[i], B: bs[i], C: c})
	}
	return nil
}

// crossTerm runs one VOLE direction and returns this party's additive
// share of a_sender*b_receiver per index. The VOLE sender gets the
// masks r and contributes -r; the receiver gets u = r + x*y and
// contributes u.
func (g *Generator) crossTerm(as, bs []field.Element, sender bool) (
	[]field.Element, error) {

	if sender {
		v, err := vole.NewSender(g.oti, g.conn, rand.Reader)
		if err != nil {
			return nil, err
		}
		xs := make([]*big.Int, len(as))
		for i, a := range as {
			xs[i] = a.Int()
		}
		rs, err := v.Mul(xs, g.modulus)
		if err != nil {
			return nil, err
		}
		out := make([]field.Element, len(rs))
		for i, r := range rs {
			out[i] = field.New(r).Neg()
		}
		return out, nil
	}

	v, err := vole.NewReceiver(g.oti, g.conn, rand.Reader)
	if err != nil {
		return nil, err
	}
	ys := make([]*big.Int, len(bs))
	for i, b := range bs {
		ys[i] = b.Int()
	}
	us, err := v.Mul(ys, g.modulus)
	if err != nil {
		return nil, err
	}
	out := make([]field.Element, len(us))
	for i, u := range us {
		out[i] = field.New(u)
	}
	return out, nil
}

// generateBits creates shares of random bits from per-party random
// bits r0, r1 with b = r0 + r1 - 2*r0*r1; the product r0*r1 is shared
// with a single VOLE direction.
func (g *Generator) generateBits(count int) error {
	buf := make([]byte, (count+7)/8)
	if _, err := rand.Read(buf); err != nil {
		return err
	}
	rbits := make([]field.Element, count)
	for i := 0; i < count; i++ {
		rbits[i] = field.FromUint64(uint64((buf[i/8] >> (i % 8)) & 1))
	}

	prods, err := g.crossTerm(rbits, rbits, g.party == 0)
	if err != nil {
		return fmt.Errorf("beaver: bit products: %w", err)
	}

	two := field.FromUint64(2)
	for i := 0; i < count; i++ {
		g.bits = append(g.bits, rbits[i].Sub(two.Mul(prods[i])))
	}
	return nil
}

// Triple implements Source.Triple.
func (g *Generator) Triple() (Triple, error) {
	if len(g.triples) == 0 {
		return Triple{}, ErrExhausted
	}
	t := g.triples[0]
	g.triples = g.triples[1:]
	return t, nil
}

// SharedBit implements Source.SharedBit.
func (g *Generator) SharedBit() (field.Element, error) {
	if len(g.bits) == 0 {
		return field.Element{}, ErrExhausted
	}
	b := g.bits[0]
	g.bits = g.bits[1:]
	return b, nil
}

// Discard implements Source.Discard.
func (g *Generator) Discard() {
	discardTriples(g.triples)
	discardElements(g.bits)
	g.triples = nil
	g.bits = nil
}
