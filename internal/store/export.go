package store

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// CSVHeader is the column order of WriteCSV.
var CSVHeader = []string{
	"id", "session_id", "serial_number", "kwh", "kvah", "max_demand_kw", "demand_kva",
	"unit", "mean_confidence", "verified", "created_at", "updated_at",
}

// WriteCSV writes readings as CSV with a header row.
func WriteCSV(w io.Writer, readings []*Reading) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, rd := range readings {
		row := []string{
			rd.ID,
			rd.SessionID,
			rd.SerialNumber,
			rd.KWh,
			rd.KVAh,
			rd.MaxDemandKW,
			rd.DemandKVA,
			rd.Unit,
			strconv.FormatFloat(rd.MeanConfidence, 'f', 3, 64),
			strconv.FormatBool(rd.Verified),
			rd.CreatedAt.UTC().Format(time.RFC3339),
			rd.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
