//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package fabric

import (
	"errors"
	"sync"
	"testing"

	"github.com/markkurossi/spdz"
	"github.com/markkurossi/spdz/beaver"
	"github.com/markkurossi/spdz/field"
	"github.com/markkurossi/spdz/link"
)

func newSessions(t *testing.T, triples int) (*spdz.Session, *spdz.Session) {
	t.Helper()

	var seed [32]byte
	copy(seed[:], []byte("fabric test seed"))

	l0, l1 := link.Pipe()

	src0, err := beaver.NewSeeded(seed, 0, triples, 0)
	if err != nil {
		t.Fatal(err)
	}
	src1, err := beaver.NewSeeded(seed, 1, triples, 0)
	if err != nil {
		t.Fatal(err)
	}

	s0, err := spdz.NewSession(0, l0, src0)
	if err != nil {
		t.Fatal(err)
	}
	s1, err := spdz.NewSession(1, l1, src1)
	if err != nil {
		t.Fatal(err)
	}
	return s0, s1
}

func runParties(s0, s1 *spdz.Session,
	f func(s *spdz.Session) error) (error, error) {

	var wg sync.WaitGroup
	var err1 error

	wg.Go(func() {
		err1 = f(s1)
	})
	err0 := f(s0)
	wg.Wait()

	return err0, err1
}

// shareInputs shares owner's values so that both parties end up with
// the same authenticated sharing.
func shareInputs(s *spdz.Session, owner int,
	values []field.Element) ([]spdz.Share, error) {

	if s.Party() == owner {
		return s.ShareInputs(values)
	}
	return s.ReceiveInputs(len(values))
}

// mulOpenCircuit builds Open(x*y) with the output designated.
func mulOpenCircuit(t *testing.T) (*Circuit, Wire, Wire, Wire) {
	t.Helper()

	c := NewCircuit()
	x, err := c.Input()
	if err != nil {
		t.Fatal(err)
	}
	y, err := c.Input()
	if err != nil {
		t.Fatal(err)
	}
	z, err := c.Mul(x, y)
	if err != nil {
		t.Fatal(err)
	}
	o, err := c.Open(z)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Output(o); err != nil {
		t.Fatal(err)
	}
	if err := c.Schedule(); err != nil {
		t.Fatal(err)
	}
	return c, x, y, o
}

func TestMulOpen(t *testing.T) {
	s0, s1 := newSessions(t, 32)
	defer s0.Close()
	defer s1.Close()

	err0, err1 := runParties(s0, s1, func(s *spdz.Session) error {
		c, wx, wy, wo := mulOpenCircuit(t)

		x, err := shareInputs(s, 0, []field.Element{field.FromUint64(7)})
		if err != nil {
			return err
		}
		y, err := shareInputs(s, 1, []field.Element{field.FromUint64(3)})
		if err != nil {
			return err
		}

		ev := NewEvaluator(s, c)
		results, err := ev.Run(map[Wire]spdz.Share{
			wx: x[0],
			wy: y[0],
		})
		if err != nil {
			return err
		}

		out := results[wo]
		if !out.Public {
			t.Errorf("party %d: output is not public", s.Party())
		}
		if !out.Value.Equal(field.FromUint64(21)) {
			t.Errorf("party %d: 7*3 = %v, expected 21", s.Party(), out.Value)
		}
		if ev.FlushCount() != 2 {
			t.Errorf("party %d: %d flushes, expected 2",
				s.Party(), ev.FlushCount())
		}
		return nil
	})
	if err0 != nil {
		t.Fatalf("party 0: %v", err0)
	}
	if err1 != nil {
		t.Fatalf("party 1: %v", err1)
	}
}

func TestCorruptedInput(t *testing.T) {
	s0, s1 := newSessions(t, 32)
	defer s0.Close()
	defer s1.Close()

	err0, err1 := runParties(s0, s1, func(s *spdz.Session) error {
		c, wx, wy, _ := mulOpenCircuit(t)

		x, err := shareInputs(s, 0, []field.Element{field.FromUint64(7)})
		if err != nil {
			return err
		}
		y, err := shareInputs(s, 1, []field.Element{field.FromUint64(3)})
		if err != nil {
			return err
		}

		xsh := x[0]
		if s.Party() == 1 {
			xsh = spdz.NewShare(
				xsh.ValueShare().Add(field.FromUint64(1)), xsh.MACShare())
		}

		ev := NewEvaluator(s, c)
		_, err = ev.Run(map[Wire]spdz.Share{
			wx: xsh,
			wy: y[0],
		})
		return err
	})

	if !errors.Is(err0, spdz.ErrIntegrity) {
		t.Errorf("party 0: expected ErrIntegrity, got %v", err0)
	}
	if !errors.Is(err1, spdz.ErrIntegrity) {
		t.Errorf("party 1: expected ErrIntegrity, got %v", err1)
	}
}

func TestLevelBatching(t *testing.T) {
	// Depth 3, width 50, all Mul gates with secret outputs: the flush
	// count equals the depth, not the gate count.
	const width = 50
	const depth = 3

	s0, s1 := newSessions(t, 1024)
	defer s0.Close()
	defer s1.Close()

	var outs [2][]spdz.Share

	err0, err1 := runParties(s0, s1, func(s *spdz.Session) error {
		c := NewCircuit()

		input := func(n int) ([]Wire, error) {
			wires := make([]Wire, n)
			for i := range wires {
				w, err := c.Input()
				if err != nil {
					return nil, err
				}
				wires[i] = w
			}
			return wires, nil
		}
		xs, err := input(width)
		if err != nil {
			return err
		}
		ys, err := input(width)
		if err != nil {
			return err
		}
		us, err := input(width)
		if err != nil {
			return err
		}
		vs, err := input(width)
		if err != nil {
			return err
		}

		outWires := make([]Wire, width)
		for i := 0; i < width; i++ {
			m1, err := c.Mul(xs[i], ys[i])
			if err != nil {
				return err
			}
			m2, err := c.Mul(m1, us[i])
			if err != nil {
				return err
			}
			m3, err := c.Mul(m2, vs[i])
			if err != nil {
				return err
			}
			if err := c.Output(m3); err != nil {
				return err
			}
			outWires[i] = m3
		}
		if err := c.Schedule(); err != nil {
			return err
		}
		if c.Depth() != depth {
			t.Errorf("depth %d, expected %d", c.Depth(), depth)
		}

		constVec := func(v uint64) []field.Element {
			vals := make([]field.Element, width)
			for i := range vals {
				vals[i] = field.FromUint64(v)
			}
			return vals
		}
		x, err := shareInputs(s, 0, constVec(2))
		if err != nil {
			return err
		}
		y, err := shareInputs(s, 0, constVec(3))
		if err != nil {
			return err
		}
		u, err := shareInputs(s, 1, constVec(4))
		if err != nil {
			return err
		}
		v, err := shareInputs(s, 1, constVec(5))
		if err != nil {
			return err
		}

		inputs := make(map[Wire]spdz.Share, 4*width)
		for i := 0; i < width; i++ {
			inputs[xs[i]] = x[i]
			inputs[ys[i]] = y[i]
			inputs[us[i]] = u[i]
			inputs[vs[i]] = v[i]
		}

		ev := NewEvaluator(s, c)
		results, err := ev.Run(inputs)
		if err != nil {
			return err
		}
		if ev.FlushCount() != depth {
			t.Errorf("party %d: %d flushes for depth %d",
				s.Party(), ev.FlushCount(), depth)
		}

		shares := make([]spdz.Share, width)
		for i, w := range outWires {
			out := results[w]
			if out.Public {
				t.Errorf("party %d: output %d is public", s.Party(), i)
			}
			shares[i] = out.Share
		}
		outs[s.Party()] = shares
		return nil
	})
	if err0 != nil {
		t.Fatalf("party 0: %v", err0)
	}
	if err1 != nil {
		t.Fatalf("party 1: %v", err1)
	}

	// Combine the secret output shares: 2*3*4*5 = 120.
	want := field.FromUint64(120)
	for i := 0; i < width; i++ {
		got := outs[0][i].ValueShare().Add(outs[1][i].ValueShare())
		if !got.Equal(want) {
			t.Errorf("output %d = %v, expected %v", i, got, want)
		}
	}
}

func TestLocalCircuitNoFlushes(t *testing.T) {
	s0, s1 := newSessions(t, 32)
	defer s0.Close()
	defer s1.Close()

	var outs [2]spdz.Share

	err0, err1 := runParties(s0, s1, func(s *spdz.Session) error {
		c := NewCircuit()
		wx, err := c.Input()
		if err != nil {
			return err
		}
		wy, err := c.Input()
		if err != nil {
			return err
		}
		wz, err := c.Add(wx, wy)
		if err != nil {
			return err
		}
		if err := c.Output(wz); err != nil {
			return err
		}
		if err := c.Schedule(); err != nil {
			return err
		}

		x, err := shareInputs(s, 0, []field.Element{field.FromUint64(30)})
		if err != nil {
			return err
		}
		y, err := shareInputs(s, 1, []field.Element{field.FromUint64(12)})
		if err != nil {
			return err
		}

		ev := NewEvaluator(s, c)
		results, err := ev.Run(map[Wire]spdz.Share{
			wx: x[0],
			wy: y[0],
		})
		if err != nil {
			return err
		}
		if ev.FlushCount() != 0 {
			t.Errorf("party %d: %d flushes for a local circuit",
				s.Party(), ev.FlushCount())
		}
		outs[s.Party()] = results[wz].Share
		return nil
	})
	if err0 != nil {
		t.Fatalf("party 0: %v", err0)
	}
	if err1 != nil {
		t.Fatalf("party 1: %v", err1)
	}

	got := outs[0].ValueShare().Add(outs[1].ValueShare())
	if !got.Equal(field.FromUint64(42)) {
		t.Errorf("30+12 = %v, expected 42", got)
	}
}

func TestMixedGates(t *testing.T) {
	// Open((x+5)*3 - y) for x=7, y=2: expected 34. The only level
	// with network traffic is the Open level.
	s0, s1 := newSessions(t, 32)
	defer s0.Close()
	defer s1.Close()

	err0, err1 := runParties(s0, s1, func(s *spdz.Session) error {
		c := NewCircuit()
		wx, err := c.Input()
		if err != nil {
			return err
		}
		wy, err := c.Input()
		if err != nil {
			return err
		}
		k, err := c.Const(field.FromUint64(5))
		if err != nil {
			return err
		}
		sum, err := c.Add(wx, k)
		if err != nil {
			return err
		}
		scaled, err := c.PubMul(sum, field.FromUint64(3))
		if err != nil {
			return err
		}
		diff, err := c.Sub(scaled, wy)
		if err != nil {
			return err
		}
		o, err := c.Open(diff)
		if err != nil {
			return err
		}
		if err := c.Output(o); err != nil {
			return err
		}
		if err := c.Schedule(); err != nil {
			return err
		}

		x, err := shareInputs(s, 0, []field.Element{field.FromUint64(7)})
		if err != nil {
			return err
		}
		y, err := shareInputs(s, 1, []field.Element{field.FromUint64(2)})
		if err != nil {
			return err
		}

		ev := NewEvaluator(s, c)
		results, err := ev.Run(map[Wire]spdz.Share{
			wx: x[0],
			wy: y[0],
		})
		if err != nil {
			return err
		}
		out := results[o]
		if !out.Public || !out.Value.Equal(field.FromUint64(34)) {
			t.Errorf("party %d: (7+5)*3-2 = %v, expected 34",
				s.Party(), out.Value)
		}
		if ev.FlushCount() != 1 {
			t.Errorf("party %d: %d flushes, expected 1",
				s.Party(), ev.FlushCount())
		}
		return nil
	})
	if err0 != nil {
		t.Fatalf("party 0: %v", err0)
	}
	if err1 != nil {
		t.Fatalf("party 1: %v", err1)
	}
}

func TestTripleExhaustion(t *testing.T) {
	// Supply covers the input authentication (2 triples) but not the
	// multiplication (4 more): the evaluation aborts at the Mul level
	// with no partial result.
	s0, s1 := newSessions(t, 4)
	defer s0.Close()
	defer s1.Close()

	err0, err1 := runParties(s0, s1, func(s *spdz.Session) error {
		c, wx, wy, _ := mulOpenCircuit(t)

		x, err := shareInputs(s, 0, []field.Element{field.FromUint64(7)})
		if err != nil {
			return err
		}
		y, err := shareInputs(s, 1, []field.Element{field.FromUint64(3)})
		if err != nil {
			return err
		}

		ev := NewEvaluator(s, c)
		results, err := ev.Run(map[Wire]spdz.Share{
			wx: x[0],
			wy: y[0],
		})
		if results != nil {
			t.Errorf("party %d: partial results after abort", s.Party())
		}
		if c.state != stateAborted {
			t.Errorf("party %d: circuit state %s after abort",
				s.Party(), c.state)
		}
		return err
	})

	if !errors.Is(err0, beaver.ErrExhausted) {
		t.Errorf("party 0: expected ErrExhausted, got %v", err0)
	}
	if !errors.Is(err1, beaver.ErrExhausted) {
		t.Errorf("party 1: expected ErrExhausted, got %v", err1)
	}
	if s0.Aborted() == nil || s1.Aborted() == nil {
		t.Errorf("sessions not aborted on exhaustion")
	}
}

func TestRunInputMismatch(t *testing.T) {
	s0, s1 := newSessions(t, 32)
	defer s0.Close()
	defer s1.Close()

	err0, err1 := runParties(s0, s1, func(s *spdz.Session) error {
		c, wx, _, _ := mulOpenCircuit(t)

		x, err := shareInputs(s, 0, []field.Element{field.FromUint64(7)})
		if err != nil {
			return err
		}

		// Configuration errors are raised before any protocol
		// activity: the session stays usable.
		ev := NewEvaluator(s, c)
		_, err = ev.Run(map[Wire]spdz.Share{wx: x[0]})
		if !errors.Is(err, ErrConfig) {
			t.Errorf("party %d: expected ErrConfig, got %v", s.Party(), err)
		}
		if s.Aborted() != nil {
			t.Errorf("party %d: session aborted by a config error",
				s.Party())
		}
		return nil
	})
	if err0 != nil {
		t.Fatalf("party 0: %v", err0)
	}
	if err1 != nil {
		t.Fatalf("party 1: %v", err1)
	}
}
