//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"crypto/rand"

	"github.com/markkurossi/spdz/field"
)

// ShareInputs secret-shares this party's private input values with
// the peer: each value is masked with a fresh random share and the
// complement is sent over. The resulting shares are authenticated
// before they are returned. The peer must call ReceiveInputs with the
// same count.
func (s *Session) ShareInputs(values []field.Element) ([]Share, error) {
	if err := s.Aborted(); err != nil {
		return nil, err
	}
	local := make([]field.Element, len(values))
	peer := make([]field.Element, len(values))
	for i, v := range values {
		r, err := field.Random(rand.Reader)
		if err != nil {
			return nil, err
		}
		local[i] = r
		peer[i] = v.Sub(r)
	}
	if err := s.lk.SendBatch(peer); err != nil {
		return nil, s.Abort(ioError("send input shares", err))
	}
	return s.Authenticate(local)
}

// ReceiveInputs receives count shares of the peer's private inputs
// and authenticates them.
func (s *Session) ReceiveInputs(count int) ([]Share, error) {
	if err := s.Aborted(); err != nil {
		return nil, err
	}
	local, err := s.lk.RecvBatch(count)
	if err != nil {
		return nil, s.Abort(ioError("receive input shares", err))
	}
	return s.Authenticate(local)
}
