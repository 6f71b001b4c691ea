//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package fabric evaluates arithmetic circuits over authenticated
// shares. A circuit is built as a DAG of gates, scheduled into
// dependency levels, and evaluated level by level: all multiplications
// and openings of one level share a single network exchange, so the
// round-trip count equals the circuit depth, not the gate count.
package fabric

import (
	"errors"
	"fmt"

	"github.com/markkurossi/spdz/field"
)

// ErrConfig is the error kind of malformed circuits: single-use
// violations, dangling wires, invalid gate operands. Configuration
// errors are raised before any network activity and are recoverable
// by the caller.
var ErrConfig = errors.New("fabric: invalid circuit")

// Kind defines the gate types.
type Kind uint8

// Gate types.
const (
	KindInput Kind = iota
	KindConst
	KindAdd
	KindSub
	KindMul
	KindPubMul
	KindOpen
)

var kinds = map[Kind]string{
	KindInput:  "Input",
	KindConst:  "Const",
	KindAdd:    "Add",
	KindSub:    "Sub",
	KindMul:    "Mul",
	KindPubMul: "PubMul",
	KindOpen:   "Open",
}

func (k Kind) String() string {
	name, ok := kinds[k]
	if ok {
		return name
	}
	return fmt.Sprintf("{Kind %d}", k)
}

type state int

const (
	stateBuilding state = iota
	stateScheduled
	stateEvaluating
	stateChecking
	stateCompleted
	stateAborted
)

var states = map[state]string{
	stateBuilding:   "Building",
	stateScheduled:  "Scheduled",
	stateEvaluating: "Evaluating",
	stateChecking:   "Checking",
	stateCompleted:  "Completed",
	stateAborted:    "Aborted",
}

func (s state) String() string {
	name, ok := states[s]
	if ok {
		return name
	}
	return fmt.Sprintf("{state %d}", s)
}

// Wire identifies a gate's output. Gates live in an arena and refer
// to their operands by wire index; operands always point at earlier
// gates, so the circuit is acyclic by construction.
type Wire int

type gate struct {
	kind     Kind
	a, b     Wire
	k        field.Element
	level    int
	public   bool
	consumed bool
	output   bool
}

// Circuit is a gate DAG under construction or evaluation. The zero
// value is not usable; create circuits with NewCircuit. Circuits are
// single-shot: once evaluated they cannot be reused.
type Circuit struct {
	state   state
	gates   []gate
	inputs  []Wire
	outputs []Wire
	levels  [][]Wire
	numMul  int
}

// NewCircuit creates an empty circuit in the building state.
func NewCircuit() *Circuit {
	return new(Circuit)
}

// Inputs returns the input wires in creation order.
func (c *Circuit) Inputs() []Wire {
	return c.inputs
}

// Depth returns the number of dependency levels above the inputs.
// Valid after Schedule.
func (c *Circuit) Depth() int {
	return len(c.levels) - 1
}

// NumMul returns the number of multiplication gates.
func (c *Circuit) NumMul() int {
	return c.numMul
}

// NumGates returns the total gate count.
func (c *Circuit) NumGates() int {
	return len(c.gates)
}

func (c *Circuit) building() error {
	if c.state != stateBuilding {
		return fmt.Errorf("%w: circuit is %s", ErrConfig, c.state)
	}
	return nil
}

// use consumes the operand wire. Every wire feeds exactly one
// downstream gate or one output; a second use is a configuration
// error, never a silent duplication.
func (c *Circuit) use(w Wire) (*gate, error) {
	if w < 0 || int(w) >= len(c.gates) {
		return nil, fmt.Errorf("%w: unknown wire %d", ErrConfig, w)
	}
	g := &c.gates[w]
	if g.consumed {
		return nil, fmt.Errorf("%w: wire %d already consumed", ErrConfig, w)
	}
	g.consumed = true
	return g, nil
}

func (c *Circuit) push(g gate) Wire {
	c.gates = append(c.gates, g)
	return Wire(len(c.gates) - 1)
}

// Input adds an input gate. The caller supplies the wire's
// authenticated share at evaluation time.
func (c *Circuit) Input() (Wire, error) {
	if err := c.building(); err != nil {
		return 0, err
	}
	w := c.push(gate{kind: KindInput})
	c.inputs = append(c.inputs, w)
	return w, nil
}

// Const adds a public constant gate.
func (c *Circuit) Const(v field.Element) (Wire, error) {
	if err := c.building(); err != nil {
		return 0, err
	}
	return c.push(gate{kind: KindConst, k: v, public: true}), nil
}

// Add adds a + b. At most one operand may be public: adding two
// public wires belongs outside the circuit.
func (c *Circuit) Add(a, b Wire) (Wire, error) {
	return c.linear(KindAdd, a, b)
}

// Sub adds a - b.
func (c *Circuit) Sub(a, b Wire) (Wire, error) {
	return c.linear(KindSub, a, b)
}

func (c *Circuit) linear(kind Kind, a, b Wire) (Wire, error) {
	if err := c.building(); err != nil {
		return 0, err
	}
	ga, err := c.use(a)
	if err != nil {
		return 0, err
	}
	gb, err := c.use(b)
	if err != nil {
		return 0, err
	}
	if ga.public && gb.public {
		return 0, fmt.Errorf("%w: %s of two public wires", ErrConfig, kind)
	}
	return c.push(gate{kind: kind, a: a, b: b}), nil
}

// Mul adds a * b of two secret wires. Multiplication by a public
// value is PubMul; multiplication gates cost one triple each.
func (c *Circuit) Mul(a, b Wire) (Wire, error) {
	if err := c.building(); err != nil {
		return 0, err
	}
	ga, err := c.use(a)
	if err != nil {
		return 0, err
	}
	gb, err := c.use(b)
	if err != nil {
		return 0, err
	}
	if ga.public || gb.public {
		return 0, fmt.Errorf("%w: Mul operand is public, use PubMul",
			ErrConfig)
	}
	c.numMul++
	return c.push(gate{kind: KindMul, a: a, b: b}), nil
}

// PubMul adds k * a for a public constant k.
func (c *Circuit) PubMul(a Wire, k field.Element) (Wire, error) {
	if err := c.building(); err != nil {
		return 0, err
	}
	ga, err := c.use(a)
	if err != nil {
		return 0, err
	}
	if ga.public {
		return 0, fmt.Errorf("%w: PubMul operand is public", ErrConfig)
	}
	return c.push(gate{kind: KindPubMul, a: a, k: k}), nil
}

// Open adds a gate revealing the value behind a secret wire to both
// parties. The revealed value is certified by the MAC check of its
// level before any later level runs.
func (c *Circuit) Open(a Wire) (Wire, error) {
	if err := c.building(); err != nil {
		return 0, err
	}
	ga, err := c.use(a)
	if err != nil {
		return 0, err
	}
	if ga.public {
		return 0, fmt.Errorf("%w: Open operand is already public", ErrConfig)
	}
	return c.push(gate{kind: KindOpen, a: a, public: true}), nil
}

// Output designates a wire as a circuit output. Outputs consume their
// wire like any other use.
func (c *Circuit) Output(w Wire) error {
	if err := c.building(); err != nil {
		return err
	}
	g, err := c.use(w)
	if err != nil {
		return err
	}
	g.output = true
	c.outputs = append(c.outputs, w)
	return nil
}

// Schedule partitions the circuit into dependency levels: a gate's
// level is one more than the highest level among its operands, inputs
// and constants are level 0. This exact layering, not an arbitrary
// topological order, is what lets every multiplication of a level
// share one exchange. Dangling wires are rejected here.
func (c *Circuit) Schedule() error {
	if err := c.building(); err != nil {
		return err
	}
	if len(c.outputs) == 0 {
		return fmt.Errorf("%w: no outputs", ErrConfig)
	}
	for w, g := range c.gates {
		if !g.consumed {
			return fmt.Errorf("%w: dangling wire %d (%s)",
				ErrConfig, w, g.kind)
		}
	}

	depth := 0
	for w := range c.gates {
		g := &c.gates[w]
		switch g.kind {
		case KindInput, KindConst:
			g.level = 0
		case KindAdd, KindSub, KindMul:
			g.level = 1 + max(c.gates[g.a].level, c.gates[g.b].level)
		case KindPubMul, KindOpen:
			g.level = 1 + c.gates[g.a].level
		}
		if g.level > depth {
			depth = g.level
		}
	}

	c.levels = make([][]Wire, depth+1)
	for w := range c.gates {
		l := c.gates[w].level
		c.levels[l] = append(c.levels[l], Wire(w))
	}
	c.state = stateScheduled
	return nil
}
