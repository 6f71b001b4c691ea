//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Command spdz-demo evaluates z = x*y + k between two parties. By
// default both parties run in-process over a pipe; with -listen or
// -connect the computation runs over TCP against a remote peer.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/markkurossi/mpc/p2p"

	"github.com/markkurossi/spdz"
	"github.com/markkurossi/spdz/beaver"
	"github.com/markkurossi/spdz/fabric"
	"github.com/markkurossi/spdz/field"
	"github.com/markkurossi/spdz/link"
)

var (
	xFlag       = flag.Uint64("x", 7, "party 0's input")
	yFlag       = flag.Uint64("y", 3, "party 1's input")
	kFlag       = flag.Uint64("k", 42, "public constant")
	listenFlag  = flag.String("listen", "", "run as party 0 on the address")
	connectFlag = flag.String("connect", "", "run as party 1, connect to peer")
)

func main() {
	log.SetFlags(0)
	flag.Parse()

	switch {
	case *listenFlag != "":
		listener, err := net.Listen("tcp", *listenFlag)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("listening at %s", listener.Addr())
		nc, err := listener.Accept()
		if err != nil {
			log.Fatal(err)
		}
		listener.Close()
		if err := run(0, link.New(p2p.NewConn(nc))); err != nil {
			log.Fatal(err)
		}

	case *connectFlag != "":
		nc, err := net.Dial("tcp", *connectFlag)
		if err != nil {
			log.Fatal(err)
		}
		if err := run(1, link.New(p2p.NewConn(nc))); err != nil {
			log.Fatal(err)
		}

	default:
		l0, l1 := link.Pipe()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(1, l1); err != nil {
				log.Printf("party 1: %s", err)
			}
		}()
		if err := run(0, l0); err != nil {
			log.Printf("party 0: %s", err)
		}
		wg.Wait()
	}
}

func run(party int, lk *link.Conn) error {
	src, err := beaver.NewDealer(lk, party, 16, 0)
	if err != nil {
		return err
	}
	sess, err := spdz.NewSession(party, lk, src)
	if err != nil {
		return err
	}
	defer sess.Close()

	c := fabric.NewCircuit()
	wx, err := c.Input()
	if err != nil {
		return err
	}
	wy, err := c.Input()
	if err != nil {
		return err
	}
	prod, err := c.Mul(wx, wy)
	if err != nil {
		return err
	}
	wk, err := c.Const(field.FromUint64(*kFlag))
	if err != nil {
		return err
	}
	sum, err := c.Add(prod, wk)
	if err != nil {
		return err
	}
	o, err := c.Open(sum)
	if err != nil {
		return err
	}
	if err := c.Output(o); err != nil {
		return err
	}
	if err := c.Schedule(); err != nil {
		return err
	}

	var x, y []spdz.Share
	if party == 0 {
		x, err = sess.ShareInputs([]field.Element{field.FromUint64(*xFlag)})
		if err != nil {
			return err
		}
		y, err = sess.ReceiveInputs(1)
	} else {
		x, err = sess.ReceiveInputs(1)
		if err != nil {
			return err
		}
		y, err = sess.ShareInputs([]field.Element{field.FromUint64(*yFlag)})
	}
	if err != nil {
		return err
	}

	ev := fabric.NewEvaluator(sess, c)
	results, err := ev.Run(map[fabric.Wire]spdz.Share{
		wx: x[0],
		wy: y[0],
	})
	if err != nil {
		return err
	}

	fmt.Printf("party %d: x*y + %d = %s (%d flushes)\n",
		party, *kFlag, results[o].Value, ev.FlushCount())
	return nil
}
