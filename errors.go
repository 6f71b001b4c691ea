//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"errors"
	"fmt"
)

var (
	// ErrIntegrity is returned when the MAC check fails. It means the
	// peer (or the channel behind it) presented shares inconsistent
	// with the committed MACs and the session has been aborted.
	ErrIntegrity = errors.New("spdz: MAC check failed")

	// ErrIO is returned when a network operation fails. The session
	// has been aborted.
	ErrIO = errors.New("spdz: network failure")
)

func ioError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrIO, op, err)
}
