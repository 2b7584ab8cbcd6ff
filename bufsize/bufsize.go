// Package bufsize computes, for every array, how many cells of it must
// be live at once under the combined schedule, which is what lets the
// backend emit a fixed-size ring buffer instead of retaining the whole
// (possibly infinite) array.
package bufsize

import (
	"github.com/wudi/flowc/diag"
	"github.com/wudi/flowc/polyhedral"
	"github.com/wudi/flowc/schedule"
)

// Sizer computes and records buffer sizes on a Program's arrays.
type Sizer struct {
	prog *polyhedral.Program
	sch  *schedule.Result
}

// New returns a Sizer bound to the given program and its schedule.
func New(prog *polyhedral.Program, sch *schedule.Result) *Sizer {
	return &Sizer{prog: prog, sch: sch}
}

// Run computes Array.BufferSize, Array.Period, Array.PeriodOffset, and
// Array.InterPeriodDependency for every array in the program, per the
// live-range distance rule: a cell written at iteration
// w and read at iteration r must stay live for every r with r >= w, so
// the per-dimension buffer extent is one more than the largest r-w seen
// across all readers, and it is finite only when every access to that
// dimension is a constant offset from the statement's own flow
// coordinate (which our affine write/read relations always are, since
// translate.affineOf already rejected anything else). A self-recursive
// statement reads its own array at negative offsets (fib[n-1],
// fib[n-2]); those backward reads need the window sized to
// max(|offset|) directly rather than offset+1, since the cell they
// depend on was produced in the same step, not a prior one.
func (s *Sizer) Run() error {
	writer := map[string]*polyhedral.Statement{}
	for _, st := range s.prog.Statements {
		if st.Array != nil {
			writer[st.Array.Name] = st
		}
	}
	readers := map[string][]*readAccess{}
	for _, st := range s.prog.Statements {
		for _, r := range st.Reads {
			readers[r.ArrayName] = append(readers[r.ArrayName], &readAccess{stmt: st, rel: r})
		}
	}

	for _, arr := range s.prog.Arrays {
		w := writer[arr.Name]
		size := make([]int, arr.Rank())
		for d := range size {
			size[d] = 1
		}
		var interPeriod bool

		if w != nil && w.FlowDim >= 0 {
			flowDim := w.Array.FlowDim
			maxDistance := int64(0)
			maxBackward := int64(0)
			for _, ra := range readers[arr.Name] {
				if flowDim >= len(ra.rel.OutExprs) {
					continue
				}
				expr := ra.rel.OutExprs[flowDim]
				if ra.stmt.FlowDim < 0 {
					continue // a finite reader of an infinite array cannot happen under our invariants
				}
				readerFlowVar := ra.stmt.IterVars()[ra.stmt.FlowDim]
				coeff := expr.Coeff(readerFlowVar)
				if coeff != 1 {
					// A non-unit coefficient (e.g. the downsampler reading
					// x[2*t]) samples sparsely rather than retaining a
					// sliding window; its distance is governed by the
					// rate, not an additive offset, and it needs no extra
					// buffering beyond the single cell produced this
					// period.
					continue
				}
				off := expr.ConstTerm()
				// Distance, in the PRODUCER's own units, between the
				// read and the write it depends on: the reader's flow
				// coordinate runs at a different rate than the
				// producer's when schedule.Rate differs, so convert via
				// the schedule's k_stmt ratio.
				readerKey := rateKeyFor(ra.stmt)
				writerKey := arr.Name
				rRate := s.sch.Rate[readerKey]
				wRate := s.sch.Rate[writerKey]
				if rRate == 0 {
					rRate = 1
				}
				if wRate == 0 {
					wRate = 1
				}
				// off is already expressed in the producer array's own
				// index units (e.g. x[t+2] means the dependency is 2
				// cells ahead of the reader's own tick), so the raw
				// offset is the live-range distance directly when the
				// rates match.
				distance := off
				if rRate != wRate {
					distance = off * wRate / rRate
				}
				if distance > maxDistance {
					maxDistance = distance
				}
				if distance > 0 {
					interPeriod = true
				}
				if distance < 0 {
					backward := -distance
					if backward > maxBackward {
						maxBackward = backward
					}
					interPeriod = true
				}
			}
			if maxDistance > 0 {
				size[flowDim] = int(maxDistance) + 1
			}
			if int(maxBackward) > size[flowDim] {
				size[flowDim] = int(maxBackward)
			}
		}

		arr.BufferSize = size
		arr.InterPeriodDependency = interPeriod
		if s.sch != nil {
			arr.Period = int(s.sch.PeriodSpan(arr.Name))
			arr.PeriodOffset = int(s.sch.PeriodOffset)
		}
	}
	return nil
}

type readAccess struct {
	stmt *polyhedral.Statement
	rel  *polyhedral.Relation
}

func rateKeyFor(s *polyhedral.Statement) string {
	if s.Array != nil {
		return s.Array.Name
	}
	return s.Name
}

// Validate reports a BackendError if any array ended up with an
// unbounded buffer requirement, which would mean the program cannot
// run in bounded memory.
func Validate(prog *polyhedral.Program) error {
	for _, a := range prog.Arrays {
		for d, sz := range a.BufferSize {
			if sz <= 0 {
				return diag.NewUnlocated(diag.BackendError, "array %q has non-positive buffer size %d in dimension %d", a.Name, sz, d)
			}
		}
	}
	return nil
}
