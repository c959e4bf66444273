package main

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/accuread/internal/store"
)

func newReadingsStore(t *testing.T, ids ...string) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	for _, id := range ids {
		rd := &store.Reading{ID: id, SerialNumber: "ABC123XYZ", KWh: "1450.5", MeanConfidence: 0.9}
		if err := st.Readings().Create(rd); err != nil {
			t.Fatal(err)
		}
	}
	return st
}

func TestListReadings_Table(t *testing.T) {
	st := newReadingsStore(t, "0123456789abcdef")

	var out bytes.Buffer
	if err := listReadings(&out, st, 20, false); err != nil {
		t.Fatalf("listReadings() error = %v", err)
	}
	if !strings.Contains(out.String(), "01234567") || strings.Contains(out.String(), "0123456789abcdef") {
		t.Errorf("table should show the short id:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "90%") {
		t.Errorf("table missing confidence:\n%s", out.String())
	}
}

func TestListReadings_CSV(t *testing.T) {
	st := newReadingsStore(t, "r1", "r2", "r3")

	tests := []struct {
		name  string
		limit int
		rows  int
	}{
		{"all", 0, 4},
		{"limited", 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := listReadings(&out, st, tt.limit, true); err != nil {
				t.Fatalf("listReadings() error = %v", err)
			}
			rows, err := csv.NewReader(&out).ReadAll()
			if err != nil {
				t.Fatalf("invalid CSV: %v", err)
			}
			if len(rows) != tt.rows {
				t.Errorf("rows = %d, want %d", len(rows), tt.rows)
			}
		})
	}
}

func TestListReadings_Empty(t *testing.T) {
	var out bytes.Buffer
	if err := listReadings(&out, newReadingsStore(t), 20, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No readings") {
		t.Errorf("output = %q", out.String())
	}
}
