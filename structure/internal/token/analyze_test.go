package token

import (
	"testing"

	"github.com/wippyai/rawpack/errors"
)

func analyze(t *testing.T, format string, unsafe bool) error {
	t.Helper()
	tokens, _, err := Parse(format)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", format, err)
	}
	return Analyze(tokens, format, unsafe)
}

func TestAnalyze_ValidReferences(t *testing.T) {
	for _, format := range []string{
		"B /0s",
		"3B /0s /1s /2s",
		"B /p1s",
		"H I /p2s",
		"B /0[B /0s]",
		"B /0(n)",
		"#0I",
		"#5s",
		"B x /p1s", // layout-only elements do not disturb slot indexing
	} {
		if err := analyze(t, format, false); err != nil {
			t.Errorf("Analyze(%q) failed: %v", format, err)
		}
	}
}

func TestAnalyze_HardErrors(t *testing.T) {
	// invalid in unsafe mode too
	cases := []string{
		"/0B",      // references itself
		"B /1B",    // references itself
		"B /2B",    // references after itself
		"/p1B",     // nothing before the start
		"B H /p3B", // beyond the scope start
		"B /p0B",   // relative offset below 1
	}
	for _, format := range cases {
		for _, unsafe := range []bool{false, true} {
			err := analyze(t, format, unsafe)
			if err == nil {
				t.Errorf("Analyze(%q, unsafe=%v) succeeded, want error", format, unsafe)
				continue
			}
			if fe := err.(*errors.Error); fe.Kind != errors.KindBadReference {
				t.Errorf("Analyze(%q) kind = %s, want bad_reference", format, fe.Kind)
			}
		}
	}
}

func TestAnalyze_NonNumericTarget(t *testing.T) {
	cases := []string{
		"3s /0B",  // byte string target
		"f /0B",   // float target
		"? /0B",   // bool target
		"c /p1B",  // char target
		"(B) /0s", // substructure target
		"X /0s",   // hex target
	}
	for _, format := range cases {
		for _, unsafe := range []bool{false, true} {
			err := analyze(t, format, unsafe)
			if err == nil {
				t.Errorf("Analyze(%q, unsafe=%v) succeeded, want error", format, unsafe)
				continue
			}
			if fe := err.(*errors.Error); fe.Kind != errors.KindBadReference {
				t.Errorf("Analyze(%q) kind = %s, want bad_reference", format, fe.Kind)
			}
		}
	}
}

func TestAnalyze_UnsafeReferences(t *testing.T) {
	// rejected under safe mode, accepted under unsafe mode
	cases := []string{
		"B /0B /p1c",  // relative across a reference-counted element
		"B /0B /1B",   // absolute into a reference-counted run
		"#0B /0B",     // absolute past an externally-counted run
		"n /p1B",      // relative across a null-terminated string
		"B n /1B",     // absolute past a null-terminated string
		"B /0(n) /1B", // absolute past a data-dependent substructure
	}
	for _, format := range cases {
		err := analyze(t, format, false)
		if err == nil {
			t.Errorf("Analyze(%q, safe) succeeded, want unsafe_reference error", format)
			continue
		}
		if fe := err.(*errors.Error); fe.Kind != errors.KindUnsafeReference {
			t.Errorf("Analyze(%q, safe) kind = %s, want unsafe_reference", format, fe.Kind)
		}
		if err := analyze(t, format, true); err != nil {
			t.Errorf("Analyze(%q, unsafe) failed: %v", format, err)
		}
	}
}

func TestAnalyze_SafeAcceptedIsUnsafeAccepted(t *testing.T) {
	// everything safe mode accepts, unsafe mode accepts too
	for _, format := range []string{
		"4B 3s 3s",
		"3B /0s /1s /2s",
		"B /0[B /0s]",
		"4s {Bn}",
		"Q B | 2B 4a",
	} {
		if err := analyze(t, format, false); err != nil {
			t.Fatalf("Analyze(%q, safe) failed: %v", format, err)
		}
		if err := analyze(t, format, true); err != nil {
			t.Errorf("Analyze(%q, unsafe) failed: %v", format, err)
		}
	}
}

func TestAnalyze_ScopeLocality(t *testing.T) {
	// the inner /0 resolves against the inner scope only
	if err := analyze(t, "I [s /0B]", false); err == nil {
		t.Error("inner absolute reference to an outer element must fail")
	}
	if err := analyze(t, "I [B /0s]", false); err != nil {
		t.Errorf("scope-local inner reference failed: %v", err)
	}
}

func TestAnalyze_Shape(t *testing.T) {
	tokens, _, err := Parse("4B #0I n (2H) {B}")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := Analyze(tokens, "", false); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	want := []Det{DetFixed, DetExternal, DetDynamic, DetFixed, DetDynamic}
	for i, d := range want {
		if tokens[i].Shape != d {
			t.Errorf("token %d shape = %d, want %d", i, tokens[i].Shape, d)
		}
	}
}

func TestAnalyze_SlotIndices(t *testing.T) {
	tokens, _, err := Parse("3B 2s s B")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := Analyze(tokens, "", false); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	want := []int{0, 3, 4, 5}
	for i, s := range want {
		if tokens[i].Slot != s {
			t.Errorf("token %d slot = %d, want %d", i, tokens[i].Slot, s)
		}
	}
}

func TestTopSlots(t *testing.T) {
	cases := []struct {
		format string
		slots  int
		known  bool
	}{
		{"4B 3s 3s", 6, true},
		{"B (H) [I]", 3, true},
		{"B /0B", 0, false},
		{"2n x a |", 2, true},
	}
	for _, tc := range cases {
		tokens, _, err := Parse(tc.format)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", tc.format, err)
		}
		slots, known := TopSlots(tokens)
		if known != tc.known || (known && slots != tc.slots) {
			t.Errorf("TopSlots(%q) = %d, %v; want %d, %v", tc.format, slots, known, tc.slots, tc.known)
		}
	}
}
