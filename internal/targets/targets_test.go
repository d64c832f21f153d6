package targets

import (
	"strings"
	"testing"
)

func drain(it Iterator) []uint32 {
	var out []uint32
	for {
		rid, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, rid)
	}
}

func TestRangeIterator(t *testing.T) {
	got := drain(NewRangeIterator(Range{First: 10, Last: 13}))
	expected := []uint32{10, 11, 12, 13}
	if len(got) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("index %d: expected %d, got %d", i, expected[i], got[i])
		}
	}
}

func TestRangeIteratorTopOfSpace(t *testing.T) {
	got := drain(NewRangeIterator(Range{First: 0xfffffffe, Last: 0xffffffff}))
	if len(got) != 2 || got[1] != 0xffffffff {
		t.Fatalf("Expected [4294967294 4294967295], got %v", got)
	}
}

func TestRangeIteratorEmpty(t *testing.T) {
	if got := drain(NewRangeIterator(Range{First: 5, Last: 4})); len(got) != 0 {
		t.Fatalf("Expected empty, got %v", got)
	}
}

func batchStrings(bs []Ranges) string {
	parts := make([]string, len(bs))
	for i, b := range bs {
		parts[i] = b.String()
	}
	return strings.Join(parts, " | ")
}

func TestRangesBatchesDefaultSpace(t *testing.T) {
	rs, _ := ParseRIDs(DefaultSpace)
	batches := rs.Batches(DefaultBatchSize)
	if len(batches) != 10 {
		t.Fatalf("Expected 10 batches, got %d", len(batches))
	}
	for i, b := range batches {
		if len(b) != 1 || b.First() != uint32(i*30000) || b.Last() != uint32(i*30000+29999) {
			t.Errorf("batch %d: got %s", i, b)
		}
	}
}

func TestRangesBatchesTopOfSpace(t *testing.T) {
	rs := Ranges{{First: 0xfffffff0, Last: 0xffffffff}}
	if got := batchStrings(rs.Batches(10)); got != "4294967280-4294967289 | 4294967290-4294967295" {
		t.Fatalf("got %s", got)
	}
	if got := batchStrings(rs.Batches(16)); got != "4294967280-4294967295" {
		t.Fatalf("got %s", got)
	}
}

func TestParseRIDs(t *testing.T) {
	tests := []struct {
		spec    string
		want    string
		total   uint64
		wantErr bool
	}{
		{spec: "500-1000", want: "500-1000", total: 501},
		{spec: "512-580, 600-1400,1103", want: "512-580,600-1400,1103", total: 69 + 801 + 1},
		{spec: DefaultSpace, want: "0-299999", total: 300000},
		{spec: "0-4294967295", want: "0-4294967295", total: 1 << 32},
		{spec: "", wantErr: true},
		{spec: "10-5", wantErr: true},
		{spec: "1-2-3", wantErr: true},
		{spec: "abc", wantErr: true},
		{spec: "4294967296", wantErr: true},
	}
	for _, tt := range tests {
		rs, err := ParseRIDs(tt.spec)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseRIDs(%q): expected error, got %v", tt.spec, rs)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRIDs(%q): %v", tt.spec, err)
			continue
		}
		if rs.String() != tt.want {
			t.Errorf("ParseRIDs(%q) = %s, want %s", tt.spec, rs, tt.want)
		}
		if rs.Len() != tt.total {
			t.Errorf("ParseRIDs(%q).Len() = %d, want %d", tt.spec, rs.Len(), tt.total)
		}
	}
}

func TestRangesBatchesPackAcrossSpans(t *testing.T) {
	rs, _ := ParseRIDs("0-9,100-104")
	if got := batchStrings(rs.Batches(4)); got != "0-3 | 4-7 | 8-9,100-101 | 102-104" {
		t.Fatalf("got %s", got)
	}
	// A batch larger than the set keeps every span in one run.
	rs, _ = ParseRIDs("500-1000,1103")
	if got := batchStrings(rs.Batches(DefaultBatchSize)); got != "500-1000,1103" {
		t.Fatalf("got %s", got)
	}
}

func TestRangesAt(t *testing.T) {
	rs, _ := ParseRIDs("1-2,7,9-10")
	want := []uint32{1, 2, 7, 9, 10}
	for i, rid := range want {
		if got := rs.At(uint64(i)); got != rid {
			t.Errorf("At(%d) = %d, want %d", i, got, rid)
		}
	}
	if rs.First() != 1 || rs.Last() != 10 {
		t.Errorf("bounds: got %d-%d", rs.First(), rs.Last())
	}
}

func TestRangesIterator(t *testing.T) {
	rs, _ := ParseRIDs("1-2,7,9-10")
	got := drain(rs.Iterator())
	want := []uint32{1, 2, 7, 9, 10}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestReadHosts(t *testing.T) {
	in := "dc01.corp.local\n\n  10.0.0.5  \n# comment\ndc02\n"
	hosts, err := ReadHosts(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"dc01.corp.local", "10.0.0.5", "dc02"}
	if strings.Join(hosts, ",") != strings.Join(want, ",") {
		t.Fatalf("Expected %v, got %v", want, hosts)
	}
}
