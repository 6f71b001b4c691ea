//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Command spdz-bench measures multiplication gate throughput: it
// evaluates an all-Mul circuit of the given depth and width between
// two in-process parties and reports timings and I/O statistics.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/markkurossi/mpc/p2p"
	"github.com/markkurossi/tabulate"

	"github.com/markkurossi/spdz"
	"github.com/markkurossi/spdz/beaver"
	"github.com/markkurossi/spdz/fabric"
	"github.com/markkurossi/spdz/field"
	"github.com/markkurossi/spdz/link"
)

var (
	depthFlag = flag.Int("depth", 10, "multiplication depth")
	widthFlag = flag.Int("width", 100, "multiplications per level")
)

type result struct {
	gates     int
	muls      int
	inputTime time.Duration
	evalTime  time.Duration
	flushes   int
	stats     p2p.IOStats
}

func main() {
	log.SetFlags(0)
	flag.Parse()

	l0, l1 := link.Pipe()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := run(1, l1); err != nil {
			log.Printf("party 1: %s", err)
		}
	}()
	r, err := run(0, l0)
	wg.Wait()
	if err != nil {
		log.Fatal(err)
	}
	report(r)
}

func run(party int, lk *link.Conn) (*result, error) {
	depth := *depthFlag
	width := *widthFlag
	numInputs := width * (depth + 1)
	numMuls := width * depth

	var seed [32]byte
	copy(seed[:], []byte("spdz-bench"))
	src, err := beaver.NewSeeded(seed, party, numInputs+4*numMuls, 0)
	if err != nil {
		return nil, err
	}
	sess, err := spdz.NewSession(party, lk, src)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	// Each of the width chains multiplies depth+1 inputs together.
	c := fabric.NewCircuit()
	wires := make([]fabric.Wire, numInputs)
	for i := range wires {
		wires[i], err = c.Input()
		if err != nil {
			return nil, err
		}
	}
	for i := 0; i < width; i++ {
		acc := wires[i*(depth+1)]
		for j := 1; j <= depth; j++ {
			acc, err = c.Mul(acc, wires[i*(depth+1)+j])
			if err != nil {
				return nil, err
			}
		}
		if err := c.Output(acc); err != nil {
			return nil, err
		}
	}
	if err := c.Schedule(); err != nil {
		return nil, err
	}

	values := make([]field.Element, numInputs)
	for i := range values {
		values[i] = field.FromUint64(2)
	}
	start := time.Now()
	var shares []spdz.Share
	if party == 0 {
		shares, err = sess.ShareInputs(values)
	} else {
		shares, err = sess.ReceiveInputs(numInputs)
	}
	if err != nil {
		return nil, err
	}
	inputTime := time.Since(start)

	inputs := make(map[fabric.Wire]spdz.Share, numInputs)
	for i, w := range wires {
		inputs[w] = shares[i]
	}

	start = time.Now()
	ev := fabric.NewEvaluator(sess, c)
	if _, err := ev.Run(inputs); err != nil {
		return nil, err
	}

	return &result{
		gates:     c.NumGates(),
		muls:      c.NumMul(),
		inputTime: inputTime,
		evalTime:  time.Since(start),
		flushes:   ev.FlushCount(),
		stats:     lk.Stats(),
	}, nil
}

func report(r *result) {
	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Metric").SetAlign(tabulate.ML)
	tab.Header("Value").SetAlign(tabulate.MR)

	row := tab.Row()
	row.Column("Gates")
	row.Column(fmt.Sprintf("%d", r.gates))

	row = tab.Row()
	row.Column("Mul gates")
	row.Column(fmt.Sprintf("%d", r.muls))

	row = tab.Row()
	row.Column("Depth")
	row.Column(fmt.Sprintf("%d", *depthFlag))

	row = tab.Row()
	row.Column("Input sharing")
	row.Column(r.inputTime.String())

	row = tab.Row()
	row.Column("Evaluation")
	row.Column(r.evalTime.String())

	row = tab.Row()
	row.Column("Muls/s")
	row.Column(fmt.Sprintf("%.0f",
		float64(r.muls)/r.evalTime.Seconds()))

	row = tab.Row()
	row.Column("Flushes")
	row.Column(fmt.Sprintf("%d", r.flushes))

	row = tab.Row()
	row.Column("Sent")
	row.Column(fmt.Sprintf("%d bytes", r.stats.Sent.Load()))

	row = tab.Row()
	row.Column("Rcvd")
	row.Column(fmt.Sprintf("%d bytes", r.stats.Recvd.Load()))

	tab.Print(os.Stdout)
}
