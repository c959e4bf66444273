package decision

import "testing"

type attempt struct {
	name  string
	confs []float64
}

func (a attempt) MeanConfidence() float64 {
	if len(a.confs) == 0 {
		return 0
	}
	var sum float64
	for _, c := range a.confs {
		sum += c
	}
	return sum / float64(len(a.confs))
}

func TestConsensus(t *testing.T) {
	tests := []struct {
		name      string
		results   []attempt
		wantName  string
		wantIndex int
	}{
		{
			name:      "single result unchanged",
			results:   []attempt{{name: "only", confs: []float64{0.2}}},
			wantName:  "only",
			wantIndex: 0,
		},
		{
			name: "higher mean wins",
			results: []attempt{
				{name: "first", confs: []float64{0.9, 0.9, 0.9}},
				{name: "second", confs: []float64{0.5, 0.5, 0.5}},
			},
			wantName:  "first",
			wantIndex: 0,
		},
		{
			name: "later higher mean wins",
			results: []attempt{
				{name: "first", confs: []float64{0.5, 0.6}},
				{name: "second", confs: []float64{0.7, 0.9}},
			},
			wantName:  "second",
			wantIndex: 1,
		},
		{
			name: "ties keep earliest",
			results: []attempt{
				{name: "first", confs: []float64{0.8, 0.6}},
				{name: "second", confs: []float64{0.7, 0.7}},
				{name: "third", confs: []float64{0.6, 0.8}},
			},
			wantName:  "first",
			wantIndex: 0,
		},
		{
			name: "empty fields count as zero",
			results: []attempt{
				{name: "empty"},
				{name: "some", confs: []float64{0.1}},
			},
			wantName:  "some",
			wantIndex: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, idx, ok := Consensus(tt.results)
			if !ok {
				t.Fatal("Consensus() ok = false")
			}
			if got.name != tt.wantName || idx != tt.wantIndex {
				t.Errorf("Consensus() = %s@%d, want %s@%d", got.name, idx, tt.wantName, tt.wantIndex)
			}
		})
	}
}

func TestConsensus_Empty(t *testing.T) {
	_, idx, ok := Consensus[attempt](nil)
	if ok {
		t.Error("Consensus(nil) ok = true, want false")
	}
	if idx != -1 {
		t.Errorf("Consensus(nil) index = %d, want -1", idx)
	}
}
