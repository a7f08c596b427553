package predict

import (
	"time"

	"alive/internal/intake"
)

// Response is what the prediction service returns for one record.
type Response struct {
	RiskProbability float64  `json:"risk_probability"`
	RiskCategory    string   `json:"risk_category"`
	Note            string   `json:"note"`
	Advice          []string `json:"advice"`
}

// Result merges the service response with the submitted record plus the
// assessment date and a unix-millisecond timestamp. It is read-only once
// built.
type Result struct {
	intake.Record
	Response
	Date      string `json:"date"`
	Timestamp int64  `json:"timestamp"`
}

// HighRisk reports whether the probability crosses the coarse 0.5 line used
// for the overall risk callout.
func (r Result) HighRisk() bool { return r.RiskProbability > 0.5 }

// RiskPercent returns the probability as a 0-100 value.
func (r Result) RiskPercent() float64 { return r.RiskProbability * 100 }

// now is swapped out in tests for deterministic dates and timestamps.
var now = time.Now

func stamp(rec intake.Record, resp Response, fallbackName string) Result {
	if rec.Name == "" {
		rec.Name = fallbackName
	}
	t := now().UTC()
	return Result{
		Record:    rec,
		Response:  resp,
		Date:      t.Format("2006-01-02"),
		Timestamp: t.UnixMilli(),
	}
}
