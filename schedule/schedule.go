// Package schedule implements dependency extraction,
// separate finite and infinite schedules, the infinite schedule's
// period and period offset, and their combination into one union
// schedule with a synthetic leading dimension.
//
// The design notes license treating the ISL/CLooG
// scheduling and code-generation primitives as abstract services; this
// package is that service, implemented directly rather than bound to
// an external solver, using a constraint-propagation pass over the
// read/write relations instead of a general Pluto-style ILP solve.
package schedule

import (
	"fmt"
	"sort"

	"github.com/wudi/flowc/diag"
	"github.com/wudi/flowc/linalg"
	"github.com/wudi/flowc/polyhedral"
)

// State is the scheduler output's state machine
type State int

const (
	Empty State = iota
	FiniteOnly
	InfiniteOnly
	Combined
)

func (s State) String() string {
	return [...]string{"empty", "finite_only", "infinite_only", "combined"}[s]
}

// Context is the scoped solver arena: acquired at the
// start of a scheduling run and released after emission. It carries no
// mutable state of its own (the "arena" in this implementation is just
// the Go garbage collector), but its lifetime brackets one run the way
// the design notes describe.
type Context struct{ closed bool }

// NewContext acquires a scheduler context.
func NewContext() *Context { return &Context{} }

// Release tears the context down, marking it closed; it mirrors the
// scoped-acquisition-with-guaranteed-release pattern a real external
// solver's arena would require.
func (c *Context) Release() { c.closed = true }

// StatementSchedule is the affine time function for one statement:
// Time(iter) returns the combined-schedule time tuple, leading with
// the synthetic phase dimension
type StatementSchedule struct {
	Name string
	Rank int // topological rank among same-partition statements (finite case)

	// Infinite-only fields:
	FlowVarCoeff int64 // k_stmt: schedule units per 1 unit of the statement's own flow iterator
	Phase        int64 // additive constant ensuring causality against producers
}

// Time returns the lexicographic time tuple for iteration point iter,
// which must have the same length as the statement's domain.
func (ss *StatementSchedule) Time(finite bool, flowDim int, iter []int64) []int64 {
	t := make([]int64, 0, len(iter)+2)
	if finite {
		t = append(t, -1)
		t = append(t, int64(ss.Rank))
		t = append(t, iter...)
	} else {
		t = append(t, 0)
		t = append(t, ss.FlowVarCoeff*iter[flowDim]+ss.Phase)
		for i, v := range iter {
			if i == flowDim {
				continue
			}
			t = append(t, v)
		}
	}
	return t
}

// Result is the full output of Run: per-statement schedules, the
// finite/infinite/combined state, and the derived period quantities
//
type Result struct {
	State        State
	Statements   map[string]*StatementSchedule
	Rate         map[string]int64 // k_stmt, keyed by array name (statement-owning or external)
	LeastCommonPeriod int64
	PeriodOffset int64
}

// PeriodSpan returns lcm/k for the array named name, i.e. how many of
// its flow iterations advance per global period.
func (r *Result) PeriodSpan(arrayName string) int64 {
	k := r.Rate[arrayName]
	if k == 0 {
		return 0
	}
	return r.LeastCommonPeriod / k
}

// Run computes the combined schedule for prog.
func Run(ctx *Context, prog *polyhedral.Program) (*Result, error) {
	finite, infinite := partition(prog)

	res := &Result{Statements: map[string]*StatementSchedule{}, Rate: map[string]int64{}}
	switch {
	case len(finite) == 0 && len(infinite) == 0:
		res.State = Empty
		return res, nil
	case len(infinite) == 0:
		res.State = FiniteOnly
	case len(finite) == 0:
		res.State = InfiniteOnly
	default:
		res.State = Combined
	}

	order, err := topoOrder(finite)
	if err != nil {
		return nil, err
	}
	for i, s := range order {
		res.Statements[s.Name] = &StatementSchedule{Name: s.Name, Rank: i}
	}

	if len(infinite) > 0 {
		if err := scheduleInfinite(prog, infinite, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func partition(prog *polyhedral.Program) (finite, infinite []*polyhedral.Statement) {
	for _, s := range prog.Statements {
		if s.FlowDim >= 0 {
			infinite = append(infinite, s)
		} else {
			finite = append(finite, s)
		}
	}
	return
}

// topoOrder sorts statements so that a writer always precedes any
// reader of its array, failing with SchedulerFailure if a genuine
// (non-self) cycle exists.
func topoOrder(stmts []*polyhedral.Statement) ([]*polyhedral.Statement, error) {
	byArray := map[string]*polyhedral.Statement{}
	for _, s := range stmts {
		if s.Array != nil {
			byArray[s.Array.Name] = s
		}
	}
	indeg := map[string]int{}
	adj := map[string][]string{}
	for _, s := range stmts {
		indeg[s.Name] = 0
	}
	for _, s := range stmts {
		for _, r := range s.Reads {
			writer, ok := byArray[r.ArrayName]
			if !ok || writer.Name == s.Name {
				continue // external input, or a self-loop
			}
			adj[writer.Name] = append(adj[writer.Name], s.Name)
			indeg[s.Name]++
		}
	}
	byName := map[string]*polyhedral.Statement{}
	for _, s := range stmts {
		byName[s.Name] = s
	}

	var queue []string
	for _, s := range stmts {
		if indeg[s.Name] == 0 {
			queue = append(queue, s.Name)
		}
	}
	sort.Strings(queue)
	var order []*polyhedral.Statement
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, byName[n])
		next := append([]string{}, adj[n]...)
		sort.Strings(next)
		for _, m := range next {
			indeg[m]--
			if indeg[m] == 0 {
				queue = append(queue, m)
				sort.Strings(queue)
			}
		}
	}
	if len(order) != len(stmts) {
		return nil, diag.NewUnlocated(diag.SchedulerFailure, "dependency cycle among finite statements")
	}
	return order, nil
}

// scheduleInfinite computes k_stmt (flow-var schedule coefficient),
// the global least common period, the per-statement phase, and the
// program-wide period offset.
func scheduleInfinite(prog *polyhedral.Program, infinite []*polyhedral.Statement, res *Result) error {
	writerOf := map[string]*polyhedral.Statement{}
	for _, s := range infinite {
		if s.Array != nil {
			writerOf[s.Array.Name] = s
		}
	}
	rateKey := func(s *polyhedral.Statement) string {
		if s.Array != nil {
			return s.Array.Name
		}
		return s.Name
	}

	// Seed every infinite statement and every externally-read infinite
	// array at rate 1, then relax upward using the multiplicative
	// coefficient found on each reader's own flow iterator (a pure
	// additive offset, coefficient 1, never changes the rate).
	k := map[string]int64{}
	for _, s := range infinite {
		k[rateKey(s)] = 1
	}
	for _, s := range infinite {
		for _, r := range s.Reads {
			if _, seen := k[r.ArrayName]; !seen {
				k[r.ArrayName] = 1 // external input array
			}
		}
	}

	for iter := 0; iter < len(infinite)+1; iter++ {
		changed := false
		for _, s := range infinite {
			flowVar := s.IterVars()[s.FlowDim]
			for _, r := range s.Reads {
				producerArrayFlowDim := findFlowDim(prog, r.ArrayName)
				if producerArrayFlowDim < 0 || producerArrayFlowDim >= len(r.OutExprs) {
					continue
				}
				c := r.OutExprs[producerArrayFlowDim].Coeff(flowVar)
				if c == 0 {
					c = 1
				}
				if c < 0 {
					c = -c
				}
				producerKey := r.ArrayName
				want := linalg.LCM(k[rateKey(s)], c*k[producerKey])
				if want != k[rateKey(s)] {
					k[rateKey(s)] = want
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	vals := make([]int64, 0, len(k))
	for _, v := range k {
		vals = append(vals, v)
	}
	lcm := linalg.LCMAll(vals)
	if lcm == 0 {
		lcm = 1
	}
	res.LeastCommonPeriod = lcm
	res.Rate = k

	// Phase: process statements in producer-before-consumer order
	// (ignoring self-loops), assigning the minimal phase that keeps
	// every dependency causal for every iteration (the per-iteration
	// terms cancel exactly because k was chosen proportionally; see
	// package doc and DESIGN.md).
	order, err := topoOrder(infinite)
	if err != nil {
		return err
	}
	phase := map[string]int64{}
	for _, s := range order {
		key := rateKey(s)
		var best int64
		flowVar := s.IterVars()[s.FlowDim]
		for _, r := range s.Reads {
			producerFlowDim := findFlowDim(prog, r.ArrayName)
			if producerFlowDim < 0 || producerFlowDim >= len(r.OutExprs) {
				continue
			}
			off := r.OutExprs[producerFlowDim].ConstTerm()
			c := r.OutExprs[producerFlowDim].Coeff(flowVar)
			if c < 0 {
				// a negative rate coefficient cannot occur for a valid
				// forward-flowing read; treat as unsupported.
				return diag.NewUnlocated(diag.SchedulerFailure, "statement %q reads %q with a negative flow coefficient", s.Name, r.ArrayName)
			}
			producerKey := r.ArrayName
			producerPhase := phase[producerKey]
			if writer, ok := writerOf[r.ArrayName]; ok && writer.Name == s.Name {
				// self-reference: causal automatically whenever off < 0
				if off >= 0 {
					return diag.NewUnlocated(diag.SchedulerFailure, "statement %q self-reference at non-negative offset %d is not causal", s.Name, off)
				}
				continue
			}
			need := k[producerKey]*off + producerPhase + 1
			if need > best {
				best = need
			}
		}
		if best < 0 {
			best = 0
		}
		phase[key] = best
		res.Statements[s.Name] = &StatementSchedule{Name: s.Name, FlowVarCoeff: k[key], Phase: best}
	}

	var periodOffset int64
	for _, p := range phase {
		if p > periodOffset {
			periodOffset = p
		}
	}
	res.PeriodOffset = periodOffset
	return nil
}

func findFlowDim(prog *polyhedral.Program, arrayName string) int {
	for _, a := range prog.Arrays {
		if a.Name == arrayName {
			return a.FlowDim
		}
	}
	return -1
}

// Describe renders a one-line human summary of the schedule result.
func Describe(r *Result) string {
	return fmt.Sprintf("state=%s lcm=%d period_offset=%d statements=%d", r.State, r.LeastCommonPeriod, r.PeriodOffset, len(r.Statements))
}
