// Package bmi computes the body-mass index, classifies it and keeps the measurement history of each user.
package bmi

import (
	"math"

	"github.com/pkg/errors"
)

// ErrInvalidInput is returned when height or weight is not a finite, strictly positive number.
var ErrInvalidInput = errors.New("height and weight must be positive numbers")

// Category is one of the four BMI buckets.
type Category string

const (
	Underweight Category = "underweight"
	Normal      Category = "normal"
	Overweight  Category = "overweight"
	Obese       Category = "obese"
)

// bucket lower bounds (inclusive)
const (
	normalFrom     = 18.5
	overweightFrom = 25.0
	obeseFrom      = 30.0
)

var (
	labels = map[Category]string{
		Underweight: "Kurus",
		Normal:      "Normal",
		Overweight:  "Gemuk",
		Obese:       "Obesitas",
	}
	ranks = map[Category]int{
		Underweight: 0,
		Normal:      1,
		Overweight:  2,
		Obese:       3,
	}
)

// Label is the name shown to learners.
func (c Category) Label() string { return labels[c] }

// Rank orders categories from Underweight (0) to Obese (3).
func (c Category) Rank() int { return ranks[c] }

func (c Category) Valid() bool {
	_, ok := ranks[c]
	return ok
}

// Result is a computed BMI value and its category.
type Result struct {
	Value    float64  `json:"bmi_value"`
	Category Category `json:"category"`
	Label    string   `json:"category_label"`
}

// Compute returns the BMI for the given height (centimeters) and weight (kilograms),
// rounded to one decimal, together with the category of the rounded value.
// The value is always finite and positive: inputs that would give anything else are ErrInvalidInput.
func Compute(heightCm, weightKg float64) (Result, error) {
	if !isPositive(heightCm) || !isPositive(weightKg) {
		return Result{}, ErrInvalidInput
	}
	heightM := heightCm / 100
	value := Round(weightKg / (heightM * heightM))
	// tiny inputs overflow to +Inf or round down to 0
	if !isPositive(value) {
		return Result{}, ErrInvalidInput
	}
	cat := Classify(value)
	return Result{Value: value, Category: cat, Label: cat.Label()}, nil
}

// Classify maps a BMI value to its category. Buckets are half-open with an inclusive lower bound.
func Classify(value float64) Category {
	switch {
	case value < normalFrom:
		return Underweight
	case value < overweightFrom:
		return Normal
	case value < obeseFrom:
		return Overweight
	default:
		return Obese
	}
}

// Round rounds v to one decimal, half away from zero.
func Round(v float64) float64 {
	return math.Round(v*10) / 10
}

func isPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
