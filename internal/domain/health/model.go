package health

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Record types.
const (
	TypeBloodPressure    = "blood_pressure"
	TypeHeartRate        = "heart_rate"
	TypeBloodSugar       = "blood_sugar"
	TypeWeight           = "weight"
	TypeTemperature      = "temperature"
	TypeOxygenSaturation = "oxygen_saturation"
)

var RecordTypes = []string{
	TypeBloodPressure, TypeHeartRate, TypeBloodSugar,
	TypeWeight, TypeTemperature, TypeOxygenSaturation,
}

func ValidType(t string) bool {
	_, ok := defaultUnits[t]
	return ok
}

var defaultUnits = map[string]string{
	TypeBloodPressure:    "mmHg",
	TypeHeartRate:        "bpm",
	TypeBloodSugar:       "mg/dL",
	TypeWeight:           "kg",
	TypeTemperature:      "°C",
	TypeOxygenSaturation: "%",
}

// DefaultUnit returns the unit readings of type t are recorded in.
func DefaultUnit(t string) string {
	return defaultUnits[t]
}

// Classification of a reading.
const (
	StatusNormal   = "normal"
	StatusElevated = "elevated"
	StatusHigh     = "high"
	StatusLow      = "low"
)

type HealthRecord struct {
	ID         uuid.UUID `db:"id" json:"id"`
	UserID     uuid.UUID `db:"user_id" json:"user_id"`
	RecordType string    `db:"record_type" json:"record_type"`
	Systolic   *int      `db:"systolic" json:"systolic,omitempty"`
	Diastolic  *int      `db:"diastolic" json:"diastolic,omitempty"`
	Value      *float64  `db:"value" json:"value,omitempty"`
	Unit       *string   `db:"unit" json:"unit,omitempty"`
	Notes      *string   `db:"notes" json:"notes,omitempty"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
	IsDeleted  bool      `db:"is_deleted" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

func (r *HealthRecord) unit() string {
	if r.Unit != nil && *r.Unit != "" {
		return *r.Unit
	}
	return DefaultUnit(r.RecordType)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// DisplayValue renders the reading for display, e.g. "120/80 mmHg".
func (r *HealthRecord) DisplayValue() string {
	if r.RecordType == TypeBloodPressure {
		if r.Systolic == nil || r.Diastolic == nil {
			return ""
		}
		return fmt.Sprintf("%d/%d %s", *r.Systolic, *r.Diastolic, r.unit())
	}
	if r.Value == nil {
		return ""
	}
	u := r.unit()
	if u == "%" {
		return formatNumber(*r.Value) + "%"
	}
	return formatNumber(*r.Value) + " " + u
}

// Classify grades the reading against adult reference ranges. Readings
// without the values their type needs are reported as normal.
func (r *HealthRecord) Classify() string {
	if r.RecordType == TypeBloodPressure {
		if r.Systolic == nil || r.Diastolic == nil {
			return StatusNormal
		}
		return classifyBloodPressure(*r.Systolic, *r.Diastolic)
	}
	if r.Value == nil {
		return StatusNormal
	}
	v := *r.Value
	switch r.RecordType {
	case TypeHeartRate:
		switch {
		case v < 60:
			return StatusLow
		case v > 100:
			return StatusHigh
		}
	case TypeBloodSugar:
		switch {
		case v < 70:
			return StatusLow
		case v >= 126:
			return StatusHigh
		case v >= 100:
			return StatusElevated
		}
	case TypeTemperature:
		switch {
		case v < 36.1:
			return StatusLow
		case v >= 38:
			return StatusHigh
		case v > 37.2:
			return StatusElevated
		}
	case TypeOxygenSaturation:
		if v < 95 {
			return StatusLow
		}
	}
	return StatusNormal
}

func classifyBloodPressure(sys, dia int) string {
	switch {
	case sys >= 130 || dia >= 80:
		return StatusHigh
	case sys < 90 || dia < 60:
		return StatusLow
	case sys >= 120:
		return StatusElevated
	}
	return StatusNormal
}

func (r *HealthRecord) IsAbnormal() bool {
	return r.Classify() != StatusNormal
}

// ListFilter narrows a user's record listing.
type ListFilter struct {
	RecordType string
	Since      *time.Time
}

// Overall summary states.
const (
	OverallGood      = "good"
	OverallAttention = "attention"
	OverallNoData    = "no_data"
)

type HealthSummary struct {
	UserID         uuid.UUID                `json:"user_id"`
	Latest         map[string]*HealthRecord `json:"latest"`
	Counts         map[string]int           `json:"counts"`
	AbnormalCount  int                      `json:"abnormal_count"`
	OverallStatus  string                   `json:"overall_status"`
	LastRecordedAt *time.Time               `json:"last_recorded_at,omitempty"`
}

// BuildSummary condenses a user's records. Only the latest reading of each
// type counts towards AbnormalCount.
func BuildSummary(userID uuid.UUID, records []*HealthRecord) *HealthSummary {
	s := &HealthSummary{
		UserID:        userID,
		Latest:        make(map[string]*HealthRecord),
		Counts:        make(map[string]int),
		OverallStatus: OverallNoData,
	}
	for _, r := range records {
		if r.IsDeleted {
			continue
		}
		s.Counts[r.RecordType]++
		if cur, ok := s.Latest[r.RecordType]; !ok || r.RecordedAt.After(cur.RecordedAt) {
			s.Latest[r.RecordType] = r
		}
		if s.LastRecordedAt == nil || r.RecordedAt.After(*s.LastRecordedAt) {
			at := r.RecordedAt
			s.LastRecordedAt = &at
		}
	}
	if len(s.Latest) == 0 {
		return s
	}
	for _, r := range s.Latest {
		if r.IsAbnormal() {
			s.AbnormalCount++
		}
	}
	s.OverallStatus = OverallGood
	if s.AbnormalCount > 0 {
		s.OverallStatus = OverallAttention
	}
	return s
}
