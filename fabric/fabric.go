//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package fabric

import (
	"fmt"
	"sync"

	"github.com/markkurossi/spdz"
	"github.com/markkurossi/spdz/beaver"
	"github.com/markkurossi/spdz/field"
)

// levelWorkers is the size of the worker pool evaluating one level's
// gates. Levels encode all cross-gate dependencies, so gates within a
// level are independent; a single coordinator owns the network
// exchange to preserve message ordering.
const levelWorkers = 4

// Output is the result of one output wire: either an opened public
// value or this party's authenticated share of a secret result.
type Output struct {
	Public bool
	Value  field.Element
	Share  spdz.Share
}

// wireVal is the evaluated value of one wire.
type wireVal struct {
	public bool
	v      field.Element
	sh     spdz.Share
}

// mulJob is one multiplication gate of the current level. The gate
// consumes four triples: one whose shares mask the operands and three
// that authenticate the first triple's shares, so the product comes
// out MAC-authenticated. All eight masked values go into the level
// batch.
type mulJob struct {
	w          Wire
	t          beaver.Triple
	pa, pb, pc spdz.PendingMul
	slot       Slot
}

// mulJob slot layout within its eight reserved slots.
const (
	slotAuthA = 0 // 2 slots: MAC multiplication masks for t.A
	slotAuthB = 2 // 2 slots: for t.B
	slotAuthC = 4 // 2 slots: for t.C
	slotD     = 6 // x - t.A
	slotE     = 7 // y - t.B
	mulSlots  = 8
)

type openJob struct {
	w    Wire
	slot Slot
}

// Evaluator drives one circuit evaluation over one session. It is
// single-shot, like the circuit it runs.
type Evaluator struct {
	sess    *spdz.Session
	circ    *Circuit
	batch   *Batch
	wires   []wireVal
	flushes int

	// Masked operand openings awaiting their MAC check. The d = x-a
	// and e = y-b values of every multiplication are opened without
	// MACs, but x-a over the authenticated operand and authenticated
	// triple share is a checkable share of the same value. The pairs
	// are certified together with the next Open batch, and finally in
	// the checking phase, so no tampered operand survives to a result.
	checkShares []spdz.Share
	checkValues []field.Element
}

// NewEvaluator creates an evaluator for the scheduled circuit.
func NewEvaluator(sess *spdz.Session, circ *Circuit) *Evaluator {
	return &Evaluator{
		sess:  sess,
		circ:  circ,
		batch: NewBatch(64),
	}
}

// FlushCount returns the number of level exchanges performed. For a
// circuit of depth D whose every level contains a Mul or Open, the
// count is exactly D regardless of level width.
func (ev *Evaluator) FlushCount() int {
	return ev.flushes
}

// Run evaluates the circuit. The inputs map supplies one
// authenticated share per input wire; both parties must call Run with
// shares of the same sharing. On success the returned map holds one
// output per designated output wire. Any integrity, supply, or IO
// failure aborts the session and the circuit; the error carries the
// kind.
func (ev *Evaluator) Run(inputs map[Wire]spdz.Share) (
	map[Wire]Output, error) {

	c := ev.circ
	if c.state != stateScheduled {
		return nil, fmt.Errorf("%w: circuit is %s", ErrConfig, c.state)
	}
	if len(inputs) != len(c.inputs) {
		return nil, fmt.Errorf("%w: %d input shares for %d input wires",
			ErrConfig, len(inputs), len(c.inputs))
	}
	for _, w := range c.inputs {
		if _, ok := inputs[w]; !ok {
			return nil, fmt.Errorf("%w: no share for input wire %d",
				ErrConfig, w)
		}
	}

	c.state = stateEvaluating
	ev.wires = make([]wireVal, len(c.gates))

	pool := newPool(levelWorkers)
	defer pool.close()

	for _, wires := range c.levels {
		if err := ev.level(pool, wires, inputs); err != nil {
			c.state = stateAborted
			return nil, err
		}
	}

	// Certify the masked openings of any multiplications after the
	// last Open gate. Secret results are not released on top of
	// unverified products.
	c.state = stateChecking
	if err := ev.check(nil, nil); err != nil {
		c.state = stateAborted
		return nil, err
	}
	c.state = stateCompleted

	out := make(map[Wire]Output, len(c.outputs))
	for _, w := range c.outputs {
		wv := ev.wires[w]
		if wv.public {
			out[w] = Output{Public: true, Value: wv.v}
		} else {
			out[w] = Output{Share: wv.sh}
		}
	}
	return out, nil
}

// level runs one dependency level: the coordinator pulls triples and
// lays out the batch, the pool computes local gates and masked
// values, the coordinator performs the level's single exchange, and
// the pool finalizes the multiplication outputs. Values opened in
// this level pass the MAC check before the level ends.
func (ev *Evaluator) level(pool *pool, wires []Wire,
	inputs map[Wire]spdz.Share) error {

	ev.batch.Reset()

	var muls []mulJob
	var opens []openJob
	var jobs []func()

	for _, w := range wires {
		g := &ev.circ.gates[w]
		switch g.kind {
		case KindInput:
			ev.wires[w] = wireVal{sh: inputs[w]}

		case KindConst:
			ev.wires[w] = wireVal{public: true, v: g.k}

		case KindAdd, KindSub, KindPubMul:
			jobs = append(jobs, func() {
				ev.localGate(w)
			})

		case KindMul:
			job, err := ev.prepMul(w)
			if err != nil {
				return err
			}
			muls = append(muls, job)
			jobs = append(jobs, func() {
				x := ev.wires[g.a].sh.ValueShare()
				y := ev.wires[g.b].sh.ValueShare()
				ev.batch.Set(job.slot+slotD, x.Sub(job.t.A))
				ev.batch.Set(job.slot+slotE, y.Sub(job.t.B))
			})

		case KindOpen:
			job := openJob{w: w, slot: ev.batch.Reserve(1)}
			opens = append(opens, job)
			jobs = append(jobs, func() {
				ev.batch.Set(job.slot, ev.wires[g.a].sh.ValueShare())
			})
		}
	}
	pool.run(jobs)

	if ev.batch.Len() > 0 {
		if err := ev.batch.Exchange(ev.sess); err != nil {
			return err
		}
		ev.flushes++
	} else if err := ev.sess.Aborted(); err != nil {
		return err
	}

	// Finalize the multiplications. Each gate contributes its two
	// masked-opening check pairs at a preassigned position.
	checkBase := len(ev.checkShares)
	ev.checkShares = append(ev.checkShares,
		make([]spdz.Share, 2*len(muls))...)
	ev.checkValues = append(ev.checkValues,
		make([]field.Element, 2*len(muls))...)

	jobs = jobs[:0]
	for i, job := range muls {
		jobs = append(jobs, func() {
			ev.finishMul(job, checkBase+2*i)
		})
	}
	pool.run(jobs)

	if len(opens) == 0 {
		return nil
	}
	shares := make([]spdz.Share, len(opens))
	values := make([]field.Element, len(opens))
	for i, job := range opens {
		shares[i] = ev.wires[ev.circ.gates[job.w].a].sh
		values[i] = ev.batch.Opened(job.slot)
	}
	if err := ev.check(shares, values); err != nil {
		return err
	}
	for i, job := range opens {
		ev.wires[job.w] = wireVal{public: true, v: values[i]}
	}
	return nil
}

// check certifies the argument opened values together with all
// accumulated masked-opening pairs in one batched MAC check.
func (ev *Evaluator) check(shares []spdz.Share,
	values []field.Element) error {

	shares = append(ev.checkShares, shares...)
	values = append(ev.checkValues, values...)
	ev.checkShares = nil
	ev.checkValues = nil
	return ev.sess.CheckOpened(shares, values)
}

// prepMul pulls the gate's four triples and fills the six MAC
// multiplication masks into the batch. The operand masks are computed
// by the pool.
func (ev *Evaluator) prepMul(w Wire) (mulJob, error) {
	t, err := ev.sess.Triple()
	if err != nil {
		return mulJob{}, err
	}
	job := mulJob{w: w, t: t, slot: ev.batch.Reserve(mulSlots)}

	for i, v := range []field.Element{t.A, t.B, t.C} {
		p, mx, my, err := ev.sess.PrepAuth(v)
		if err != nil {
			return mulJob{}, err
		}
		switch i {
		case 0:
			job.pa = p
		case 1:
			job.pb = p
		case 2:
			job.pc = p
		}
		ev.batch.Set(job.slot+Slot(slotAuthA+2*i), mx)
		ev.batch.Set(job.slot+Slot(slotAuthA+2*i+1), my)
	}
	return job, nil
}

// finishMul combines the peer's masked values into the gate's
// authenticated output share: the triple shares become authenticated
// via their MAC multiplications, and with d = x-a and e = y-b opened,
//
//	x*y = c + d*b + e*a + d*e
//
// holds over the authenticated shares with d*e folded in as a public
// constant. The opened d and e are queued for the deferred MAC check
// against the authenticated differences.
func (ev *Evaluator) finishMul(job mulJob, checkIdx int) {
	g := &ev.circ.gates[job.w]

	aAuth := spdz.NewShare(job.t.A, job.pa.Finish(
		ev.batch.Opened(job.slot+slotAuthA),
		ev.batch.Opened(job.slot+slotAuthA+1)))
	bAuth := spdz.NewShare(job.t.B, job.pb.Finish(
		ev.batch.Opened(job.slot+slotAuthB),
		ev.batch.Opened(job.slot+slotAuthB+1)))
	cAuth := spdz.NewShare(job.t.C, job.pc.Finish(
		ev.batch.Opened(job.slot+slotAuthC),
		ev.batch.Opened(job.slot+slotAuthC+1)))

	d := ev.batch.Opened(job.slot + slotD)
	e := ev.batch.Opened(job.slot + slotE)

	ev.checkShares[checkIdx] = ev.wires[g.a].sh.Sub(aAuth)
	ev.checkValues[checkIdx] = d
	ev.checkShares[checkIdx+1] = ev.wires[g.b].sh.Sub(bAuth)
	ev.checkValues[checkIdx+1] = e

	z := cAuth.Add(bAuth.MulPublic(d)).Add(aAuth.MulPublic(e))
	z = ev.sess.AddPublic(z, d.Mul(e))
	ev.wires[job.w] = wireVal{sh: z}
}

// localGate evaluates a communication-free gate.
func (ev *Evaluator) localGate(w Wire) {
	g := &ev.circ.gates[w]
	a := ev.wires[g.a]

	if g.kind == KindPubMul {
		ev.wires[w] = wireVal{sh: a.sh.MulPublic(g.k)}
		return
	}

	b := ev.wires[g.b]
	switch g.kind {
	case KindAdd:
		switch {
		case a.public:
			ev.wires[w] = wireVal{sh: ev.sess.AddPublic(b.sh, a.v)}
		case b.public:
			ev.wires[w] = wireVal{sh: ev.sess.AddPublic(a.sh, b.v)}
		default:
			ev.wires[w] = wireVal{sh: a.sh.Add(b.sh)}
		}

	case KindSub:
		switch {
		case a.public:
			// k - x as (-1)*x + k.
			neg := b.sh.MulPublic(field.FromUint64(1).Neg())
			ev.wires[w] = wireVal{sh: ev.sess.AddPublic(neg, a.v)}
		case b.public:
			ev.wires[w] = wireVal{sh: ev.sess.SubPublic(a.sh, b.v)}
		default:
			ev.wires[w] = wireVal{sh: a.sh.Sub(b.sh)}
		}
	}
}

// pool is a fixed set of worker goroutines evaluating one level's
// independent gates.
type pool struct {
	jobs chan func()
}

func newPool(n int) *pool {
	p := &pool{
		jobs: make(chan func()),
	}
	for i := 0; i < n; i++ {
		go func() {
			for f := range p.jobs {
				f()
			}
		}()
	}
	return p
}

// run executes the jobs on the pool and waits for all of them.
func (p *pool) run(jobs []func()) {
	var wg sync.WaitGroup
	wg.Add(len(jobs))
	for _, f := range jobs {
		p.jobs <- func() {
			defer wg.Done()
			f()
		}
	}
	wg.Wait()
}

func (p *pool) close() {
	close(p.jobs)
}
