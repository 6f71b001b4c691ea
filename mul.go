//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"errors"

	"github.com/markkurossi/spdz/beaver"
	"github.com/markkurossi/spdz/field"
)

// PendingMul is a Beaver multiplication whose masked operands have
// been computed but not yet exchanged. The caller exchanges the masks,
// combines them with the peer's, and calls Finish with the opened mask
// values. The consumed triple lives only inside the pending value.
type PendingMul struct {
	t     beaver.Triple
	party int
}

// prepMul consumes one triple and returns the pending multiplication
// of x*y together with the two masked operands to exchange.
func (s *Session) prepMul(x, y field.Element) (
	PendingMul, field.Element, field.Element, error) {

	t, err := s.Triple()
	if err != nil {
		return PendingMul{}, field.Element{}, field.Element{}, err
	}
	return PendingMul{t: t, party: s.party}, x.Sub(t.A), y.Sub(t.B), nil
}

// PrepAuth prepares the MAC multiplication keyShare*v for a raw value
// share v. The returned masked operands must go into the same exchange
// as the rest of the batch; Finish with the opened masks yields this
// party's MAC share of v.
func (s *Session) PrepAuth(v field.Element) (
	PendingMul, field.Element, field.Element, error) {

	return s.prepMul(s.key, v)
}

// Finish completes the multiplication with the opened mask values
// d = x-a and e = y-b, returning this party's additive share of x*y.
func (p PendingMul) Finish(d, e field.Element) field.Element {
	z := p.t.C.Add(d.Mul(p.t.B)).Add(e.Mul(p.t.A))
	if p.party == 0 {
		z = z.Add(d.Mul(e))
	}
	return z
}

// MulBatch multiplies the pairwise values behind the argument
// additive shares: the result is this party's additive share of
// xs[i]*ys[i]. One triple is consumed and two masked values exchanged
// per pair; the whole batch costs a single network exchange. The
// masked openings are unchecked, so the results carry no MACs; the
// MAC layer is maintained by the callers (Authenticate and the
// fabric's authenticated multiplication).
func (s *Session) MulBatch(xs, ys []field.Element) ([]field.Element, error) {
	if len(xs) != len(ys) {
		return nil, errors.New("spdz: mismatched batch lengths")
	}
	n := len(xs)
	if n == 0 {
		return nil, nil
	}

	pending := make([]PendingMul, n)
	masked := make([]field.Element, 2*n)
	for i := 0; i < n; i++ {
		p, mx, my, err := s.prepMul(xs[i], ys[i])
		if err != nil {
			return nil, err
		}
		pending[i] = p
		masked[2*i] = mx
		masked[2*i+1] = my
	}

	peer, err := s.ExchangeBatch(masked)
	if err != nil {
		return nil, err
	}

	out := make([]field.Element, n)
	for i := 0; i < n; i++ {
		d := masked[2*i].Add(peer[2*i])
		e := masked[2*i+1].Add(peer[2*i+1])
		out[i] = pending[i].Finish(d, e)
	}
	return out, nil
}

// Authenticate attaches MAC shares to raw additive value shares by
// multiplying them with the shared MAC key. One triple per value, one
// network exchange for the batch.
func (s *Session) Authenticate(vals []field.Element) ([]Share, error) {
	keys := make([]field.Element, len(vals))
	for i := range keys {
		keys[i] = s.key
	}
	macs, err := s.MulBatch(keys, vals)
	if err != nil {
		return nil, err
	}
	shares := make([]Share, len(vals))
	for i := range vals {
		shares[i] = Share{v: vals[i], m: macs[i]}
	}
	return shares, nil
}
