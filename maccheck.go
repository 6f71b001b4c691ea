//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"crypto/rand"
	"math/big"

	"github.com/bnb-chain/tss-lib/v2/common"
	"github.com/bnb-chain/tss-lib/v2/crypto/commitments"

	"github.com/markkurossi/spdz/field"
)

// CheckOpened certifies a batch of revealed values against the MACs
// committed in their shares. Both parties derive the same random
// challenge vector from the transcript, collapse the batch into one
// challenge-weighted check share
//
//	sigma = sum(rho_j*mac_j) - keyShare*sum(rho_j*value_j)
//
// and exchange the check shares under hash commitments. The check
// passes iff the two shares sum to zero: a perturbation of any value
// or MAC share in the batch survives with probability 1/|field|. A
// failed check aborts the session with ErrIntegrity. Collapsing the
// batch buys one exchange per batch at the cost of not locating which
// entry was tampered with.
func (s *Session) CheckOpened(shares []Share, values []field.Element) error {
	if err := s.Aborted(); err != nil {
		return err
	}
	if len(shares) == 0 {
		return nil
	}

	rho := s.challenge(values)

	sigma := field.Element{}
	weighted := field.Element{}
	for j := range shares {
		sigma = sigma.Add(rho[j].Mul(shares[j].m))
		weighted = weighted.Add(rho[j].Mul(values[j]))
	}
	sigma = sigma.Sub(s.key.Mul(weighted))

	// Commit before revealing: neither party sees the other's check
	// share until both are bound.
	cmt := commitments.NewHashCommitment(rand.Reader, sigma.Int())

	peerC, err := s.exchangeBytes(cmt.C.Bytes())
	if err != nil {
		return err
	}
	peerR, err := s.exchangeBytes(cmt.D[0].Bytes())
	if err != nil {
		return err
	}
	peerSigma, err := s.exchangeBytes(cmt.D[1].Bytes())
	if err != nil {
		return err
	}

	peerCmt := &commitments.HashCommitDecommit{
		C: new(big.Int).SetBytes(peerC),
		D: []*big.Int{
			new(big.Int).SetBytes(peerR),
			new(big.Int).SetBytes(peerSigma),
		},
	}
	ok, secrets := peerCmt.DeCommit()
	if !ok {
		return s.Abort(ErrIntegrity)
	}
	if !sigma.Add(field.New(secrets[0])).IsZero() {
		return s.Abort(ErrIntegrity)
	}
	return nil
}

// challenge derives the per-batch random challenge vector. Both
// parties hash the session's batch counter and every opened value in
// the batch into a seed and expand per-entry coefficients from it, so
// the challenge is bound to the transcript and identical on both
// sides without trusting either.
func (s *Session) challenge(values []field.Element) []field.Element {
	seq := s.batchSeq
	s.batchSeq++

	ints := make([]*big.Int, 0, len(values)+1)
	ints = append(ints, new(big.Int).SetUint64(seq))
	for _, v := range values {
		ints = append(ints, v.Int())
	}
	seed := common.SHA512_256i(ints...)

	rho := make([]field.Element, len(values))
	for j := range values {
		h := common.SHA512_256i(seed, new(big.Int).SetUint64(uint64(j)))
		rho[j] = field.New(h)
	}
	return rho
}
