//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package field implements arithmetic in the P-256 coordinate prime
// field. Elements are immutable: every operation returns a new
// element and never modifies its operands.
package field

import (
	"crypto/elliptic"
	"encoding/hex"
	"io"
	"math/big"
)

// Size is the length of the fixed-width element encoding in bytes.
const Size = 32

var modulus = elliptic.P256().Params().P

// Modulus returns a copy of the field modulus.
func Modulus() *big.Int {
	return new(big.Int).Set(modulus)
}

// Element is an element of the prime field. The zero value is the
// additive identity.
type Element struct {
	v *big.Int
}

func (e Element) big() *big.Int {
	if e.v == nil {
		return big.NewInt(0)
	}
	return e.v
}

func reduce(x *big.Int) Element {
	z := new(big.Int).Mod(x, modulus)
	if z.Sign() < 0 {
		z.Add(z, modulus)
	}
	return Element{v: z}
}

// New creates an element from the argument integer, reduced modulo
// the field modulus. The argument is copied.
func New(v *big.Int) Element {
	return reduce(new(big.Int).Set(v))
}

// FromUint64 creates an element from an uint64 value.
func FromUint64(v uint64) Element {
	return reduce(new(big.Int).SetUint64(v))
}

// FromBytes creates an element from big-endian bytes, reduced modulo
// the field modulus.
func FromBytes(b []byte) Element {
	return reduce(new(big.Int).SetBytes(b))
}

// Random samples a uniform field element from the argument randomness
// source.
func Random(r io.Reader) (Element, error) {
	b := make([]byte, Size)
	if _, err := io.ReadFull(r, b); err != nil {
		return Element{}, err
	}
	return FromBytes(b), nil
}

// Add returns e+o.
func (e Element) Add(o Element) Element {
	return reduce(new(big.Int).Add(e.big(), o.big()))
}

// Sub returns e-o.
func (e Element) Sub(o Element) Element {
	return reduce(new(big.Int).Sub(e.big(), o.big()))
}

// Mul returns e*o.
func (e Element) Mul(o Element) Element {
	return reduce(new(big.Int).Mul(e.big(), o.big()))
}

// Neg returns -e.
func (e Element) Neg() Element {
	return reduce(new(big.Int).Neg(e.big()))
}

// Inv returns the multiplicative inverse of e. The inverse of zero is
// zero.
func (e Element) Inv() Element {
	if e.IsZero() {
		return Element{}
	}
	return Element{v: new(big.Int).ModInverse(e.big(), modulus)}
}

// Equal tests if the elements are equal.
func (e Element) Equal(o Element) bool {
	return e.big().Cmp(o.big()) == 0
}

// IsZero tests if the element is the additive identity.
func (e Element) IsZero() bool {
	return e.big().Sign() == 0
}

// Bytes returns the fixed-width big-endian encoding of the element.
func (e Element) Bytes() []byte {
	b := make([]byte, Size)
	v := e.big().Bytes()
	copy(b[Size-len(v):], v)
	return b
}

// Int returns the element as a new *big.Int.
func (e Element) Int() *big.Int {
	return new(big.Int).Set(e.big())
}

func (e Element) String() string {
	return hex.EncodeToString(e.Bytes())
}

// Zeroize overwrites the element's backing storage with zeros. It is
// the only mutating operation on elements and is used to discard key
// material.
func (e *Element) Zeroize() {
	if e.v == nil {
		return
	}
	bits := e.v.Bits()
	for i := range bits {
		bits[i] = 0
	}
	e.v.SetInt64(0)
}
