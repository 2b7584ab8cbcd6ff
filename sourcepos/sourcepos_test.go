package sourcepos

import "testing"

func TestPosString(t *testing.T) {
	if got := (Pos{Line: 3, Column: 7}).String(); got != "3:7" {
		t.Errorf("Pos.String() = %q, want %q", got, "3:7")
	}
}

func TestRangeStringWithAndWithoutModule(t *testing.T) {
	r := Range{Module: "t.flow", Start: Pos{1, 1}, End: Pos{1, 5}}
	if got, want := r.String(), "t.flow:1:1-1:5"; got != want {
		t.Errorf("Range.String() = %q, want %q", got, want)
	}

	noModule := Range{Start: Pos{2, 1}, End: Pos{2, 4}}
	if got, want := noModule.String(), "2:1-2:4"; got != want {
		t.Errorf("Range.String() with no module = %q, want %q", got, want)
	}
}

func TestSingleIsZeroWidth(t *testing.T) {
	p := Pos{Line: 4, Column: 9}
	r := Single("m", p)
	if r.Start != p || r.End != p {
		t.Errorf("Single(%v) = %+v, want a zero-width range at p", p, r)
	}
}

func TestSpanCoversBothEndpoints(t *testing.T) {
	a := Single("m", Pos{Line: 1, Column: 1})
	b := Single("m", Pos{Line: 1, Column: 10})
	s := Span(a, b)
	if s.Start != a.Start || s.End != b.End {
		t.Errorf("Span(a, b) = %+v, want Start=%v End=%v", s, a.Start, b.End)
	}
}
