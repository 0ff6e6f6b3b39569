package validation

import (
	"math"
	"strings"
	"time"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func PositiveFloat(field string, val float64, v Violations) {
	if val <= 0 || math.IsNaN(val) {
		v[field] = "must_be_positive"
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 || math.IsNaN(val) || math.IsInf(val, 0) {
		v[field] = "must_not_be_negative"
	}
}

func NonNegativeInt(field string, val int, v Violations) {
	if val < 0 {
		v[field] = "must_not_be_negative"
	}
}

func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if val < minVal || val > maxVal {
		v[field] = "out_of_range"
	}
}

// MinDigits expects value to be digits only already.
func MinDigits(field, value string, minLen int, v Violations) {
	if len(value) < minLen {
		v[field] = "too_few_digits"
	}
}

func DateRange(field string, start, end time.Time, v Violations) {
	if start.After(end) {
		v[field] = "start_after_end"
	}
}
