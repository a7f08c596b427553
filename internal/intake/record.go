package intake

// Level is a three-way biomarker category as used by the prediction service.
type Level int

const (
	LevelNormal Level = iota + 1
	LevelElevated
	LevelHigh
)

func (l Level) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelElevated:
		return "elevated"
	case LevelHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Record is the patient data built up over one intake session. Field names
// and JSON tags match the prediction service wire format; Name is stripped
// before submission.
type Record struct {
	Name        string `json:"name,omitempty"`
	Age         int    `json:"age"`
	Height      int    `json:"height"`
	Weight      int    `json:"weight"`
	ApHi        int    `json:"ap_hi"`
	ApLo        int    `json:"ap_lo"`
	Cholesterol Level  `json:"cholesterol"`
	Gluc        Level  `json:"gluc"`
	Smoke       int    `json:"smoke"`
	Alco        int    `json:"alco"`
	Active      int    `json:"active"`
}

// NewRecord returns a record with the same defaults the form starts from.
func NewRecord() Record {
	return Record{
		Age:         45,
		Height:      170,
		Weight:      75,
		ApHi:        120,
		ApLo:        80,
		Cholesterol: LevelNormal,
		Gluc:        LevelNormal,
		Active:      1,
	}
}

// BMI computes body mass index from height (cm) and weight (kg).
func (r Record) BMI() float64 {
	if r.Height == 0 {
		return 0
	}
	m := float64(r.Height) / 100
	return float64(r.Weight) / (m * m)
}

// Smokes, Drinks and IsActive read the 0/1 wire flags as booleans.
func (r Record) Smokes() bool   { return r.Smoke == 1 }
func (r Record) Drinks() bool   { return r.Alco == 1 }
func (r Record) IsActive() bool { return r.Active == 1 }
