package intake

import (
	"math"
	"strconv"
	"strings"
)

// BMI is weight / (height in metres)². ok is false for non-positive or
// non-finite inputs.
func BMI(heightCm, weightKg float64) (bmi float64, ok bool) {
	if !finitePositive(heightCm) || !finitePositive(weightKg) {
		return 0, false
	}
	m := heightCm / 100
	return weightKg / (m * m), true
}

func finitePositive(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

// Band is a BMI classification label.
type Band string

const (
	BandUnderweight Band = "Underweight"
	BandIdeal       Band = "Ideal weight"
	BandOverweight  Band = "Overweight"
	BandObesityI    Band = "Obesity Class I"
	BandObesityII   Band = "Obesity Class II"
	BandObesityIII  Band = "Obesity Class III"
)

var bands = []struct {
	below float64
	band  Band
}{
	{18.5, BandUnderweight},
	{25, BandIdeal},
	{30, BandOverweight},
	{35, BandObesityI},
	{40, BandObesityII},
}

func Classify(bmi float64) Band {
	for _, b := range bands {
		if bmi < b.below {
			return b.band
		}
	}
	return BandObesityIII
}

// parseNumber reads a form number, accepting a comma as decimal separator.
func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// BMI uses EndWeight when it is a positive number, otherwise StartWeight.
func (m *Measurements) BMI() (float64, bool) {
	if m == nil {
		return 0, false
	}
	height, ok := parseNumber(m.Height)
	if !ok {
		return 0, false
	}
	weight, ok := parseNumber(m.EndWeight)
	if !ok || weight <= 0 {
		weight, ok = parseNumber(m.StartWeight)
		if !ok {
			return 0, false
		}
	}
	return BMI(height, weight)
}
