package structure

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/rawpack/errors"
)

func mustNew(t *testing.T, format string, opts ...Option) *Struct {
	t.Helper()
	s, err := New(format, opts...)
	if err != nil {
		t.Fatalf("New(%q) failed: %v", format, err)
	}
	return s
}

func TestUnpack_FixedRecord(t *testing.T) {
	s := mustNew(t, "4B 3s 3s")
	data := []byte{0x01, 0x02, 0x03, 0x04, 'f', 'o', 'o', 'b', 'a', 'r'}

	values, err := s.Unpack(data)
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	want := []any{uint64(1), uint64(2), uint64(3), uint64(4), []byte("foo"), []byte("bar")}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestUnpack_ExternalRefsByteOrder(t *testing.T) {
	s := mustNew(t, "<4s #0I")
	data := []byte{
		'A', 'B', 'C', 'D',
		0x10, 0x00, 0x00, 0x00,
		0x20, 0x00, 0x00, 0x00,
	}

	values, err := s.Unpack(data, 2)
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	want := []any{[]byte("ABCD"), uint64(16), uint64(32)}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestUnpack_AbsoluteRefChain(t *testing.T) {
	s := mustNew(t, "3B /0s /1s /2s")
	data := append([]byte{0x04, 0x03, 0x04}, []byte("spamhameggs")...)

	values, err := s.Unpack(data)
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	want := []any{uint64(4), uint64(3), uint64(4), []byte("spam"), []byte("ham"), []byte("eggs")}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestUnpack_BoundedIteratorInnerRef(t *testing.T) {
	s := mustNew(t, "B /0[B /0s]")
	data := []byte{
		0x03,
		0x03, 'f', 'o', 'o',
		0x03, 'b', 'a', 'r',
		0x06, 'f', 'o', 'o', 'b', 'a', 'r',
	}

	values, err := s.Unpack(data)
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	want := []any{
		uint64(3),
		[]any{
			[]any{uint64(3), []byte("foo")},
			[]any{uint64(3), []byte("bar")},
			[]any{uint64(6), []byte("foobar")},
		},
	}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestUnpack_UnboundedIterator(t *testing.T) {
	s := mustNew(t, "4s {Bn}")
	data := []byte{
		'T', 'E', 'S', 'T',
		0x00, 0x0c, 'o', 'o', 0x00,
		0x01, 'b', 'a', 'r', 0x00,
		0x02, 'f', 'o', 'o', 'b', 'a', 'r', 0x00,
	}

	values, err := s.Unpack(data)
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	want := []any{
		[]byte("TEST"),
		[]any{
			[]any{uint64(0), []byte{0x0c, 'o', 'o'}},
			[]any{uint64(1), []byte("bar")},
			[]any{uint64(2), []byte("foobar")},
		},
	}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestUnpack_UnsafeForwardReference(t *testing.T) {
	_, err := New("B /0B /p1c")
	if err == nil {
		t.Fatal("expected a format error under default safety")
	}
	if fe := err.(*errors.Error); fe.Kind != errors.KindUnsafeReference {
		t.Fatalf("error kind = %s, want unsafe_reference", fe.Kind)
	}

	s := mustNew(t, "B /0B /p1c", WithUnsafeReferences())
	values, err := s.Unpack([]byte{0x02, 0xFF, 0x03, 'A', 'B', 'C'})
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	want := []any{uint64(2), uint64(255), uint64(3), byte('A'), byte('B'), byte('C')}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestUnpack_GroupFlattensIteratorNests(t *testing.T) {
	data := []byte{1, 2, 3, 4}

	group, err := mustNew(t, "2(2B)").Unpack(data)
	if err != nil {
		t.Fatalf("group Unpack failed: %v", err)
	}
	wantGroup := []any{[]any{uint64(1), uint64(2), uint64(3), uint64(4)}}
	if diff := cmp.Diff(wantGroup, group); diff != "" {
		t.Errorf("group mismatch (-want +got):\n%s", diff)
	}

	iter, err := mustNew(t, "2[2B]").Unpack(data)
	if err != nil {
		t.Fatalf("iterator Unpack failed: %v", err)
	}
	wantIter := []any{[]any{
		[]any{uint64(1), uint64(2)},
		[]any{uint64(3), uint64(4)},
	}}
	if diff := cmp.Diff(wantIter, iter); diff != "" {
		t.Errorf("iterator mismatch (-want +got):\n%s", diff)
	}
}

func TestUnpack_ScalarFamilies(t *testing.T) {
	s := mustNew(t, "<b h u i q ? c e f d")
	data := []byte{
		0xFF,             // b: -1
		0xFE, 0xFF,       // h: -2
		0xFD, 0xFF, 0xFF, // u: -3
		0xFC, 0xFF, 0xFF, 0xFF, // i: -4
		0xFB, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, // q: -5
		0x02,       // ?: true
		'Z',        // c
		0x00, 0x3C, // e: 1.0
		0x00, 0x00, 0x20, 0xC0, // f: -2.5
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x08, 0x40, // d: 3.0
	}
	values, err := s.Unpack(data)
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	want := []any{
		int64(-1), int64(-2), int64(-3), int64(-4), int64(-5),
		true, byte('Z'), float64(1.0), float64(-2.5), float64(3.0),
	}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestUnpack_HexAndPadding(t *testing.T) {
	s := mustNew(t, "2X x B")
	values, err := s.Unpack([]byte{0xDE, 0xAD, 0xFF, 0x07})
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	want := []any{"dead", uint64(7)}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestUnpack_AlignmentBase(t *testing.T) {
	// Q B sets the cursor to 9, | rebases, 2B moves 2 past the base,
	// 4a pads to the next multiple of four from the base
	s := mustNew(t, "QB| BB 4a")
	data := make([]byte, 13)
	data[8] = 1
	data[9] = 2
	data[10] = 3

	values, end, err := s.UnpackFrom(data, 0)
	if err != nil {
		t.Fatalf("UnpackFrom failed: %v", err)
	}
	if end != 13 {
		t.Errorf("end = %d, want 13", end)
	}
	want := []any{uint64(0), uint64(1), uint64(2), uint64(3)}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestUnpack_AlignmentWithoutBase(t *testing.T) {
	// alignment measured from the scope start
	s := mustNew(t, "B 4a I")
	data := []byte{0x01, 0, 0, 0, 0x02, 0, 0, 0}
	values, err := s.Unpack(data)
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if values[1].(uint64) != 2 {
		t.Errorf("aligned read = %v, want 2", values[1])
	}
}

func TestUnpack_AlignmentScopeLocal(t *testing.T) {
	// inside an iterator, alignment restarts at each scope entry
	s := mustNew(t, "B 2[B 2a]")
	data := []byte{9, 1, 0, 2, 0}
	values, err := s.Unpack(data)
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	want := []any{uint64(9), []any{[]any{uint64(1)}, []any{uint64(2)}}}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestUnpack_Rest(t *testing.T) {
	s := mustNew(t, "H $")
	values, err := s.Unpack([]byte{0x01, 0x02, 0xAA, 0xBB, 0xCC})
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if !bytes.Equal(values[1].([]byte), []byte{0xAA, 0xBB, 0xCC}) {
		t.Errorf("rest = %x", values[1])
	}
}

func TestUnpack_TrailingBytesIgnored(t *testing.T) {
	s := mustNew(t, "2B")
	values, err := s.Unpack([]byte{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if len(values) != 2 {
		t.Errorf("got %d values, want 2", len(values))
	}
}

func TestUnpack_OutOfData(t *testing.T) {
	s := mustNew(t, "4I")
	_, err := s.Unpack([]byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected out of data error")
	}
	fe := err.(*errors.Error)
	if fe.Phase != errors.PhaseDecode || fe.Kind != errors.KindOutOfData {
		t.Errorf("error = [%s] %s, want [decode] out_of_data", fe.Phase, fe.Kind)
	}
}

func TestUnpack_UnterminatedString(t *testing.T) {
	s := mustNew(t, "n")
	_, err := s.Unpack([]byte{'a', 'b', 'c'})
	if err == nil {
		t.Fatal("expected error for unterminated string")
	}
	if fe := err.(*errors.Error); fe.Kind != errors.KindOutOfData {
		t.Errorf("error kind = %s, want out_of_data", fe.Kind)
	}
}

func TestUnpack_LoopMustConsumeExactly(t *testing.T) {
	s := mustNew(t, "{H}")
	if _, err := s.Unpack([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("even input failed: %v", err)
	}
	if _, err := s.Unpack([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error when the body overruns the remaining data")
	}
}

func TestUnpack_EmptyStringValues(t *testing.T) {
	s := mustNew(t, "2n")
	values, err := s.Unpack([]byte{0x00, 'a', 0x00})
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	want := []any{[]byte{}, []byte("a")}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestUnpackFrom_Offset(t *testing.T) {
	s := mustNew(t, "2B")
	values, end, err := s.UnpackFrom([]byte{0xFF, 0xFF, 1, 2}, 2)
	if err != nil {
		t.Fatalf("UnpackFrom failed: %v", err)
	}
	if end != 4 {
		t.Errorf("end = %d, want 4", end)
	}
	want := []any{uint64(1), uint64(2)}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestUnpackReader(t *testing.T) {
	s := mustNew(t, "B 3s")
	r := bytes.NewReader([]byte{7, 'a', 'b', 'c', 0xFF})
	values, err := s.UnpackReader(r)
	if err != nil {
		t.Fatalf("UnpackReader failed: %v", err)
	}
	want := []any{uint64(7), []byte("abc")}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	// the reader is left right after the decoded bytes
	if pos, _ := r.Seek(0, 1); pos != 4 {
		t.Errorf("reader position = %d, want 4", pos)
	}
}

func TestUnpackReaderFrom(t *testing.T) {
	s := mustNew(t, "{B}")
	r := bytes.NewReader([]byte{0xAA, 1, 2, 3})
	values, end, err := s.UnpackReaderFrom(r, 1)
	if err != nil {
		t.Fatalf("UnpackReaderFrom failed: %v", err)
	}
	if end != 4 {
		t.Errorf("end = %d, want 4", end)
	}
	want := []any{[]any{
		[]any{uint64(1)}, []any{uint64(2)}, []any{uint64(3)},
	}}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestIterUnpack(t *testing.T) {
	s := mustNew(t, ">H")
	data := []byte{0x00, 0x01, 0x00, 0x02, 0x00, 0x03}
	var got []uint64
	for values, err := range s.IterUnpack(data) {
		if err != nil {
			t.Fatalf("IterUnpack failed: %v", err)
		}
		got = append(got, values[0].(uint64))
	}
	if diff := cmp.Diff([]uint64{1, 2, 3}, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestIterUnpack_RequiresExactMultiple(t *testing.T) {
	s := mustNew(t, "H")
	for _, err := range s.IterUnpack([]byte{1, 2, 3}) {
		if err == nil {
			t.Fatal("expected an error for a 3-byte input on a 2-byte structure")
		}
		return
	}
	t.Fatal("expected one error from the iterator")
}

func TestIterUnpack_IndeterminateFormat(t *testing.T) {
	s := mustNew(t, "n")
	for _, err := range s.IterUnpack([]byte{0}) {
		if err == nil {
			t.Fatal("expected a size error for an indeterminate format")
		}
		return
	}
	t.Fatal("expected one error from the iterator")
}

func TestUnpack_ExternalRefOutOfRange(t *testing.T) {
	s := mustNew(t, "#1B")
	_, err := s.Unpack([]byte{1, 2, 3}, 1)
	if err == nil {
		t.Fatal("expected out of bounds error")
	}
	if fe := err.(*errors.Error); fe.Kind != errors.KindOutOfBounds {
		t.Errorf("error kind = %s, want out_of_bounds", fe.Kind)
	}
}

func TestUnpack_NamedRecord(t *testing.T) {
	s := mustNew(t, ">H H")
	record, err := s.UnpackNamed([]byte{0x00, 0x01, 0x00, 0x02}, MapNamer("major", "minor"))
	if err != nil {
		t.Fatalf("UnpackNamed failed: %v", err)
	}
	want := map[string]any{"major": uint64(1), "minor": uint64(2)}
	if diff := cmp.Diff(want, record); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}
