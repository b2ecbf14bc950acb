package bmi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		heightCm float64
		weightKg float64
		want     Result
		wantErr  error
	}{
		{name: "normal", heightCm: 170, weightKg: 65, want: Result{Value: 22.5, Category: Normal, Label: "Normal"}},
		{name: "170cm 70kg", heightCm: 170, weightKg: 70, want: Result{Value: 24.2, Category: Normal, Label: "Normal"}},
		{name: "underweight", heightCm: 180, weightKg: 50, want: Result{Value: 15.4, Category: Underweight, Label: "Kurus"}},
		{name: "overweight", heightCm: 165, weightKg: 75, want: Result{Value: 27.5, Category: Overweight, Label: "Gemuk"}},
		{name: "obese", heightCm: 160, weightKg: 90, want: Result{Value: 35.2, Category: Obese, Label: "Obesitas"}},
		{name: "rounds up into normal", heightCm: 170, weightKg: 53.465, want: Result{Value: 18.5, Category: Normal, Label: "Normal"}},
		{name: "rounds down into underweight", heightCm: 170, weightKg: 53.295, want: Result{Value: 18.4, Category: Underweight, Label: "Kurus"}},
		{name: "zero height", heightCm: 0, weightKg: 60, wantErr: ErrInvalidInput},
		{name: "zero weight", heightCm: 170, weightKg: 0, wantErr: ErrInvalidInput},
		{name: "negative height", heightCm: -170, weightKg: 60, wantErr: ErrInvalidInput},
		{name: "negative weight", heightCm: 170, weightKg: -60, wantErr: ErrInvalidInput},
		{name: "NaN", heightCm: math.NaN(), weightKg: 60, wantErr: ErrInvalidInput},
		{name: "infinite", heightCm: 170, weightKg: math.Inf(1), wantErr: ErrInvalidInput},
		{name: "height too small, value overflows", heightCm: 1e-300, weightKg: 65, wantErr: ErrInvalidInput},
		{name: "weight too small, value rounds to zero", heightCm: 170, weightKg: 1e-300, wantErr: ErrInvalidInput},
		{name: "value rounds to zero", heightCm: 300, weightKg: 0.3, wantErr: ErrInvalidInput},
		{name: "largest accepted measurement", heightCm: 30, weightKg: 500, want: Result{Value: 5555.6, Category: Obese, Label: "Obesitas"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.heightCm, tt.weightKg)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				assert.Equal(t, Result{}, got)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		value float64
		want  Category
	}{
		{value: 0.1, want: Underweight},
		{value: 18.4, want: Underweight},
		{value: 18.5, want: Normal},
		{value: 24.9, want: Normal},
		{value: 25, want: Overweight},
		{value: 29.9, want: Overweight},
		{value: 30, want: Obese},
		{value: 75.3, want: Obese},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, Classify(tt.value), "Classify(%v)", tt.value)
	}
}

func TestClassifyIsMonotonic(t *testing.T) {
	prev := Classify(0)
	for v := 0.0; v <= 60; v = Round(v + 0.1) {
		cat := Classify(v)
		if !assert.GreaterOrEqualf(t, cat.Rank(), prev.Rank(), "rank decreased at %v", v) {
			return
		}
		prev = cat
	}
}

func TestCategory(t *testing.T) {
	assert.True(t, Obese.Valid())
	assert.False(t, Category("unknown").Valid())
	assert.Equal(t, "Gemuk", Overweight.Label())
	assert.Equal(t, 3, Obese.Rank())
}
