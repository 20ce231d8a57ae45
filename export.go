package oneiro

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// DreamRow is the flat export schema consumed by the UI layer for CSV and
// JSON downloads: one row per analyzed dream.
type DreamRow struct {
	SessionID      string  `json:"session_id"`
	Cycle          int     `json:"cycle"`
	Timestamp      string  `json:"timestamp"`
	SleepStage     string  `json:"sleep_stage"`
	Symbols        string  `json:"symbols"`
	Emotion        string  `json:"emotion"`
	Intensity      float64 `json:"intensity"`
	IsLucid        bool    `json:"is_lucid"`
	Interpretation string  `json:"interpretation"`
	Confidence     float64 `json:"confidence"`
}

// DreamRows flattens the session's analyzed dreams into export rows,
// in cycle order. Cycles without a dream are skipped.
func (s *SessionRecord) DreamRows() []DreamRow {
	var rows []DreamRow
	for _, c := range s.Cycles {
		if c.Failed || c.Dream == nil || !c.Dream.HasDream {
			continue
		}

		var interpretation string
		var confidence float64
		if c.Analysis != nil {
			interpretation = c.Analysis.Interpretation
			confidence = c.Analysis.Confidence
		}

		rows = append(rows, DreamRow{
			SessionID:      s.ID,
			Cycle:          c.Index + 1,
			Timestamp:      c.Timestamp.Format(time.RFC3339),
			SleepStage:     string(c.Stage.Stage),
			Symbols:        strings.Join(c.Dream.Symbols, ", "),
			Emotion:        string(c.Dream.Emotion),
			Intensity:      c.Dream.Intensity,
			IsLucid:        c.Dream.Lucid,
			Interpretation: interpretation,
			Confidence:     confidence,
		})
	}
	return rows
}

// csvHeader matches the DreamRow field order.
var csvHeader = []string{
	"session_id", "cycle", "timestamp", "sleep_stage", "symbols",
	"emotion", "intensity", "is_lucid", "interpretation", "confidence",
}

// WriteCSV renders rows with a header line.
func WriteCSV(w io.Writer, rows []DreamRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range rows {
		fields := []string{
			r.SessionID,
			strconv.Itoa(r.Cycle),
			r.Timestamp,
			r.SleepStage,
			r.Symbols,
			r.Emotion,
			strconv.FormatFloat(r.Intensity, 'f', -1, 64),
			strconv.FormatBool(r.IsLucid),
			r.Interpretation,
			strconv.FormatFloat(r.Confidence, 'f', -1, 64),
		}
		if err := cw.Write(fields); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
