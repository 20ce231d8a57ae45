package oneiro

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"
)

func sampleSessionRecord() *SessionRecord {
	started := time.Date(2025, 3, 14, 2, 30, 0, 0, time.UTC)
	return &SessionRecord{
		ID:        "session-1",
		StartedAt: started,
		Cycles: []CycleRecord{
			{
				Index:     0,
				Timestamp: started,
				Stage:     StageResult{Stage: StageN2, Confidence: 0.70},
			},
			{
				Index:     1,
				Timestamp: started.Add(10 * time.Minute),
				Stage:     StageResult{Stage: StageREM, Confidence: 0.75},
				Dream: &DreamContent{
					HasDream:  true,
					Stage:     StageREM,
					Symbols:   []string{"water", "light"},
					Emotion:   EmotionCalm,
					Intensity: 0.55,
					Lucid:     false,
				},
				Analysis: &DreamAnalysis{
					Interpretation: "A calm dream of water and light.",
					Confidence:     0.75,
				},
			},
			{
				Index:     2,
				Timestamp: started.Add(20 * time.Minute),
				Failed:    true,
				Error:     "synthetic failure",
			},
		},
		DreamCount: 1,
		REMCount:   1,
	}
}

func TestDreamRowsSkipsNonDreamCycles(t *testing.T) {
	record := sampleSessionRecord()

	rows := record.DreamRows()

	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	row := rows[0]
	if row.SessionID != "session-1" {
		t.Errorf("expected session ID, got %q", row.SessionID)
	}
	if row.Cycle != 2 {
		t.Errorf("expected 1-based cycle 2, got %d", row.Cycle)
	}
	if row.SleepStage != "REM" {
		t.Errorf("expected REM, got %q", row.SleepStage)
	}
	if row.Symbols != "water, light" {
		t.Errorf("expected joined symbols, got %q", row.Symbols)
	}
	if row.Interpretation != "A calm dream of water and light." {
		t.Errorf("unexpected interpretation %q", row.Interpretation)
	}
	if _, err := time.Parse(time.RFC3339, row.Timestamp); err != nil {
		t.Errorf("expected RFC3339 timestamp, got %q: %v", row.Timestamp, err)
	}
}

func TestDreamRowsEmptySession(t *testing.T) {
	record := &SessionRecord{ID: "empty"}
	if rows := record.DreamRows(); len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestWriteCSV(t *testing.T) {
	record := sampleSessionRecord()

	var buf bytes.Buffer
	if err := WriteCSV(&buf, record.DreamRows()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parsed, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}

	if len(parsed) != 2 {
		t.Fatalf("expected header plus 1 row, got %d lines", len(parsed))
	}
	if strings.Join(parsed[0], ",") != strings.Join(csvHeader, ",") {
		t.Errorf("unexpected header %v", parsed[0])
	}

	row := parsed[1]
	if row[0] != "session-1" {
		t.Errorf("expected session ID in first column, got %q", row[0])
	}
	if row[3] != "REM" {
		t.Errorf("expected stage in fourth column, got %q", row[3])
	}
	if row[7] != "false" {
		t.Errorf("expected lucid flag in eighth column, got %q", row[7])
	}
}

func TestWriteCSVEmptyRows(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parsed, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if len(parsed) != 1 {
		t.Errorf("expected header only, got %d lines", len(parsed))
	}
}
