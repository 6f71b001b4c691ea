//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package link defines the duplex channel used to exchange batches of
// field elements between the two parties. The channel is ordered and
// message-boundary preserving; confidentiality and integrity of the
// transport itself are the responsibility of the underlying
// connection.
package link

import (
	"fmt"

	"github.com/markkurossi/mpc/p2p"
	"github.com/markkurossi/spdz/field"
)

// Link moves batches of field elements and opaque byte blobs between
// the two parties. Batches are delivered in send order and a batch is
// received as one unit.
type Link interface {
	// SendBatch sends a batch of field elements as one message.
	SendBatch(vals []field.Element) error

	// RecvBatch receives one batch. The batch must contain exactly
	// count elements.
	RecvBatch(count int) ([]field.Element, error)

	// SendBytes sends an opaque byte blob as one message.
	SendBytes(data []byte) error

	// RecvBytes receives one byte blob.
	RecvBytes() ([]byte, error)

	// Close closes the channel. The peer observes disconnection.
	Close() error
}

// Conn implements Link on top of a p2p connection.
type Conn struct {
	conn *p2p.Conn
}

// New creates a link over the argument connection.
func New(conn *p2p.Conn) *Conn {
	return &Conn{
		conn: conn,
	}
}

// Stats returns the I/O statistics of the underlying connection.
func (c *Conn) Stats() p2p.IOStats {
	return c.conn.Stats
}

// SendBatch implements Link.SendBatch.
func (c *Conn) SendBatch(vals []field.Element) error {
	if err := c.conn.SendUint32(len(vals)); err != nil {
		return err
	}
	for _, v := range vals {
		if err := c.conn.SendData(v.Bytes()); err != nil {
			return err
		}
	}
	return c.conn.Flush()
}

// RecvBatch implements Link.RecvBatch.
func (c *Conn) RecvBatch(count int) ([]field.Element, error) {
	n, err := c.conn.ReceiveUint32()
	if err != nil {
		return nil, err
	}
	if n != count {
		return nil, fmt.Errorf("link: received batch of %d elements, expected %d",
			n, count)
	}
	result := make([]field.Element, n)
	for i := 0; i < n; i++ {
		data, err := c.conn.ReceiveData()
		if err != nil {
			return nil, err
		}
		if len(data) != field.Size {
			return nil, fmt.Errorf("link: invalid element length %d", len(data))
		}
		result[i] = field.FromBytes(data)
	}
	return result, nil
}

// SendBytes implements Link.SendBytes.
func (c *Conn) SendBytes(data []byte) error {
	if err := c.conn.SendData(data); err != nil {
		return err
	}
	return c.conn.Flush()
}

// RecvBytes implements Link.RecvBytes.
func (c *Conn) RecvBytes() ([]byte, error) {
	return c.conn.ReceiveData()
}

// Close implements Link.Close.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Pipe creates an in-memory link pair. Anything sent to the first
// link can be received from the second and vice versa.
func Pipe() (*Conn, *Conn) {
	c0, c1 := p2p.Pipe()
	return New(c0), New(c1)
}
