//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"github.com/markkurossi/spdz/field"
)

// Share is this party's authenticated share of a secret value x: an
// additive share of x and an additive share of key*x, where key is
// the global MAC key. Linear operations apply the same transform to
// both components, so they preserve the MAC relation without
// communication. There is no Mul on shares; multiplication of two
// secrets goes through the circuit fabric.
type Share struct {
	v field.Element
	m field.Element
}

// NewShare creates a share from raw value and MAC share components.
// It is intended for external share suppliers and tests; shares made
// from arbitrary components will fail the MAC check when opened.
func NewShare(v, m field.Element) Share {
	return Share{v: v, m: m}
}

// ValueShare returns the additive share of the value.
func (sh Share) ValueShare() field.Element {
	return sh.v
}

// MACShare returns the additive share of the MAC.
func (sh Share) MACShare() field.Element {
	return sh.m
}

// Add returns the share of the sum of the two underlying values.
func (sh Share) Add(o Share) Share {
	return Share{
		v: sh.v.Add(o.v),
		m: sh.m.Add(o.m),
	}
}

// Sub returns the share of the difference of the two underlying
// values.
func (sh Share) Sub(o Share) Share {
	return Share{
		v: sh.v.Sub(o.v),
		m: sh.m.Sub(o.m),
	}
}

// MulPublic returns the share of the underlying value times the
// public constant k.
func (sh Share) MulPublic(k field.Element) Share {
	return Share{
		v: sh.v.Mul(k),
		m: sh.m.Mul(k),
	}
}

// Public creates an authenticated share of a public value known to
// both parties. Party 0 holds the value, party 1 holds zero; both
// parties hold their key share times the value as the MAC share.
func (s *Session) Public(v field.Element) Share {
	sh := Share{
		m: s.key.Mul(v),
	}
	if s.party == 0 {
		sh.v = v
	}
	return sh
}

// AddPublic returns the share of the underlying value plus the public
// constant k. Party 0 folds k into its value share; both parties
// adjust their MAC share by their key share times k.
func (s *Session) AddPublic(sh Share, k field.Element) Share {
	out := Share{
		v: sh.v,
		m: sh.m.Add(s.key.Mul(k)),
	}
	if s.party == 0 {
		out.v = sh.v.Add(k)
	}
	return out
}

// SubPublic returns the share of the underlying value minus the
// public constant k.
func (s *Session) SubPublic(sh Share, k field.Element) Share {
	return s.AddPublic(sh, k.Neg())
}
