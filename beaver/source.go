//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package beaver implements sources of correlated randomness for the
// online protocol: one-time-use multiplication triples and random
// shared bits. Sources are pull-based and exhaustible; how a source
// fills itself is its own business.
package beaver

import (
	"errors"

	"github.com/markkurossi/spdz/field"
)

// ErrExhausted is returned when a source has no more correlated
// randomness to give.
var ErrExhausted = errors.New("beaver: correlated randomness exhausted")

// Triple holds this party's additive shares of a multiplication
// triple (a, b, c) with a*b = c. A triple is consumed by exactly one
// multiplication and never reused.
type Triple struct {
	A field.Element
	B field.Element
	C field.Element
}

// Source supplies correlated randomness to one session. A source is
// owned by exactly one session and is not safe for concurrent use.
type Source interface {
	// Triple returns the next unused multiplication triple.
	Triple() (Triple, error)

	// SharedBit returns this party's additive share of a random bit.
	SharedBit() (field.Element, error)

	// Discard drops the remaining correlated randomness, zeroizing
	// the backing shares. After Discard the source is exhausted.
	Discard()
}

func discardTriples(ts []Triple) {
	for i := range ts {
		ts[i].A.Zeroize()
		ts[i].B.Zeroize()
		ts[i].C.Zeroize()
	}
}

func discardElements(es []field.Element) {
	for i := range es {
		es[i].Zeroize()
	}
}
