//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package spdz implements the online phase of a two-party SPDZ
// computation: information-theoretically MAC-authenticated additive
// secret sharing, communication-free linear operations, Beaver-triple
// multiplication, and authenticated opening with a batched MAC check
// that aborts the session on any inconsistency.
package spdz

import (
	"crypto/rand"
	"errors"
	"sync"

	"github.com/markkurossi/spdz/beaver"
	"github.com/markkurossi/spdz/field"
	"github.com/markkurossi/spdz/link"
)

// Session holds the state of one two-party computation: the party
// identity, this party's share of the MAC key, the link to the peer,
// and the correlated randomness supply. A session is owned by one
// computation; its methods must be called from one goroutine at a
// time, with both parties making the same calls in the same order.
type Session struct {
	party int
	key   field.Element
	lk    link.Link
	src   beaver.Source

	mu       sync.Mutex
	abortErr error
	closed   bool

	batchSeq uint64
}

// NewSession creates a session for the argument party (0 or 1). The
// MAC key share is sampled locally; the sum of the two parties'
// shares forms the global key, which is never materialized anywhere.
func NewSession(party int, lk link.Link, src beaver.Source) (*Session, error) {
	if party != 0 && party != 1 {
		return nil, errors.New("spdz: party must be 0 or 1")
	}
	key, err := field.Random(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Session{
		party: party,
		key:   key,
		lk:    lk,
		src:   src,
	}, nil
}

// Party returns this party's identity.
func (s *Session) Party() int {
	return s.party
}

// Aborted returns the abort cause, or nil if the session is live.
func (s *Session) Aborted() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.abortErr
}

// Abort collapses the session: the first cause is recorded, the key
// share and the remaining correlated randomness are discarded, and
// the link is closed so that the peer observes disconnection instead
// of stalling. Abort returns the recorded cause; all subsequent
// protocol operations fail with it.
func (s *Session) Abort(cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.abortErr == nil {
		s.abortErr = cause
		s.teardown()
	}
	return s.abortErr
}

// Close tears the session down, zeroizing the key material and
// closing the link. Closing a live session does not mark it aborted.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown()
	return nil
}

func (s *Session) teardown() {
	if s.closed {
		return
	}
	s.closed = true
	s.key.Zeroize()
	s.src.Discard()
	s.lk.Close()
}

// Triple pulls the next multiplication triple from the supply.
// Exhaustion is fatal: a depleted or misbehaving supply cannot be
// distinguished from an attack, so the session aborts.
func (s *Session) Triple() (beaver.Triple, error) {
	if err := s.Aborted(); err != nil {
		return beaver.Triple{}, err
	}
	t, err := s.src.Triple()
	if err != nil {
		return beaver.Triple{}, s.Abort(err)
	}
	return t, nil
}

// SharedBit returns an authenticated share of a random bit.
func (s *Session) SharedBit() (Share, error) {
	if err := s.Aborted(); err != nil {
		return Share{}, err
	}
	b, err := s.src.SharedBit()
	if err != nil {
		return Share{}, s.Abort(err)
	}
	shares, err := s.Authenticate([]field.Element{b})
	if err != nil {
		return Share{}, err
	}
	return shares[0], nil
}

// ExchangeBatch sends this party's batch and receives the peer's
// batch of the same size. Party 0 sends first, so the exchange cannot
// deadlock. The received values are returned in send order.
func (s *Session) ExchangeBatch(vals []field.Element) ([]field.Element, error) {
	if err := s.Aborted(); err != nil {
		return nil, err
	}
	if s.party == 0 {
		if err := s.lk.SendBatch(vals); err != nil {
			return nil, s.Abort(ioError("send batch", err))
		}
		peer, err := s.lk.RecvBatch(len(vals))
		if err != nil {
			return nil, s.Abort(ioError("receive batch", err))
		}
		return peer, nil
	}
	peer, err := s.lk.RecvBatch(len(vals))
	if err != nil {
		return nil, s.Abort(ioError("receive batch", err))
	}
	if err := s.lk.SendBatch(vals); err != nil {
		return nil, s.Abort(ioError("send batch", err))
	}
	return peer, nil
}

func (s *Session) sendBytes(data []byte) error {
	if err := s.lk.SendBytes(data); err != nil {
		return s.Abort(ioError("send", err))
	}
	return nil
}

func (s *Session) recvBytes() ([]byte, error) {
	data, err := s.lk.RecvBytes()
	if err != nil {
		return nil, s.Abort(ioError("receive", err))
	}
	return data, nil
}

// exchangeBytes swaps one byte blob with the peer, party 0 first.
func (s *Session) exchangeBytes(data []byte) ([]byte, error) {
	if err := s.Aborted(); err != nil {
		return nil, err
	}
	if s.party == 0 {
		if err := s.sendBytes(data); err != nil {
			return nil, err
		}
		return s.recvBytes()
	}
	peer, err := s.recvBytes()
	if err != nil {
		return nil, err
	}
	if err := s.sendBytes(data); err != nil {
		return nil, err
	}
	return peer, nil
}
