//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"github.com/markkurossi/spdz/field"
)

// Open reveals the values behind the argument shares to both parties
// and certifies them with the batched MAC check. The values are
// returned only if the check passes; on any inconsistency the session
// aborts with ErrIntegrity and no values are released.
func (s *Session) Open(shares []Share) ([]field.Element, error) {
	values, err := s.OpenUnchecked(shares)
	if err != nil {
		return nil, err
	}
	if err := s.CheckOpened(shares, values); err != nil {
		return nil, err
	}
	return values, nil
}

// OpenUnchecked reveals the values behind the argument shares without
// running the MAC check. The caller must pass the shares and the
// returned values to CheckOpened before trusting them for any
// decision.
func (s *Session) OpenUnchecked(shares []Share) ([]field.Element, error) {
	vals := make([]field.Element, len(shares))
	for i, sh := range shares {
		vals[i] = sh.v
	}
	peer, err := s.ExchangeBatch(vals)
	if err != nil {
		return nil, err
	}
	values := make([]field.Element, len(shares))
	for i := range shares {
		values[i] = vals[i].Add(peer[i])
	}
	return values, nil
}
