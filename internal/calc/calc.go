// Package calc implements the bedside medical calculators.
package calc

import (
	"errors"
	"fmt"
	"sort"

	"github.com/opensource-health/heron/internal/domain"
)

// ErrInvalidInput is returned when a required measurement is missing or out of range.
var ErrInvalidInput = errors.New("invalid calculator input")

// ErrUnknownCalculator is returned by Run for an unregistered ID.
var ErrUnknownCalculator = errors.New("unknown calculator")

// Input carries every measurement a calculator may use.
type Input struct {
	WeightKg   float64       `json:"weight"`
	HeightCm   float64       `json:"height"`
	AgeYears   float64       `json:"age"`
	Creatinine float64       `json:"creatinine"` // mg/dL
	Gender     domain.Gender `json:"gender"`
}

// gender normalizes free-form input such as "Female" or "M".
func (in Input) gender() domain.Gender {
	return domain.ParseGender(string(in.Gender))
}

// Result is a calculator output.
type Result struct {
	Calculator string  `json:"calculator"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	Category   string  `json:"category,omitempty"`
}

// Calculator computes a Result from an Input.
type Calculator func(Input) (Result, error)

var registry = map[string]Calculator{
	"bmi":  BMI,
	"bmr":  BMR,
	"ibw":  IdealBodyWeight,
	"crcl": CreatinineClearance,
}

// IDs returns the registered calculator IDs, sorted.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Run dispatches to the calculator registered under id.
func Run(id string, in Input) (Result, error) {
	fn, ok := registry[id]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownCalculator, id)
	}
	return fn(in)
}

// BMI category keys.
const (
	Underweight  = "underweight"
	NormalWeight = "normalWeight"
	Overweight   = "overweight"
	Obesity      = "obesity"
)

// BMI computes body mass index from weight and height.
func BMI(in Input) (Result, error) {
	if in.WeightKg <= 0 || in.HeightCm <= 0 {
		return Result{}, fmt.Errorf("%w: weight and height must be positive", ErrInvalidInput)
	}

	m := in.HeightCm / 100
	bmi := in.WeightKg / (m * m)

	var category string
	switch {
	case bmi < 18.5:
		category = Underweight
	case bmi < 25:
		category = NormalWeight
	case bmi < 30:
		category = Overweight
	default:
		category = Obesity
	}

	return Result{Calculator: "bmi", Value: bmi, Unit: "kg/m2", Category: category}, nil
}

// BMR computes basal metabolic rate with the Mifflin-St Jeor equation.
// Any gender other than male uses the female constant.
func BMR(in Input) (Result, error) {
	if in.WeightKg <= 0 || in.HeightCm <= 0 || in.AgeYears <= 0 {
		return Result{}, fmt.Errorf("%w: weight, height and age must be positive", ErrInvalidInput)
	}

	bmr := 10*in.WeightKg + 6.25*in.HeightCm - 5*in.AgeYears
	if in.gender() == domain.GenderMale {
		bmr += 5
	} else {
		bmr -= 161
	}

	return Result{Calculator: "bmr", Value: bmr, Unit: "kcal/day"}, nil
}

// minIBWHeightCm is five feet; the Devine formula is undefined below it.
const minIBWHeightCm = 152.4

// IdealBodyWeight computes ideal body weight with the Devine formula.
func IdealBodyWeight(in Input) (Result, error) {
	if in.HeightCm <= minIBWHeightCm {
		return Result{}, fmt.Errorf("%w: height must exceed %.1f cm", ErrInvalidInput, minIBWHeightCm)
	}

	base := 45.5
	if in.gender() == domain.GenderMale {
		base = 50
	}
	inchesOverFiveFeet := in.HeightCm/2.54 - 60

	return Result{Calculator: "ibw", Value: base + 2.3*inchesOverFiveFeet, Unit: "kg"}, nil
}

// CreatinineClearance estimates clearance with the Cockcroft-Gault equation.
func CreatinineClearance(in Input) (Result, error) {
	if in.AgeYears <= 0 || in.WeightKg <= 0 || in.Creatinine <= 0 {
		return Result{}, fmt.Errorf("%w: age, weight and creatinine must be positive", ErrInvalidInput)
	}

	clearance := ((140 - in.AgeYears) * in.WeightKg) / (72 * in.Creatinine)
	if in.gender() == domain.GenderFemale {
		clearance *= 0.85
	}

	return Result{Calculator: "crcl", Value: clearance, Unit: "mL/min"}, nil
}
