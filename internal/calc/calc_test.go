package calc

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/opensource-health/heron/internal/domain"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}

func TestBMI(t *testing.T) {
	tests := []struct {
		name     string
		weight   float64
		height   float64
		want     float64
		category string
	}{
		{"underweight", 50, 180, 15.43, Underweight},
		{"normal", 70, 175, 22.86, NormalWeight},
		{"overweight", 85, 175, 27.76, Overweight},
		{"obese", 110, 175, 35.92, Obesity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := BMI(Input{WeightKg: tt.weight, HeightCm: tt.height})
			if err != nil {
				t.Fatalf("BMI error: %v", err)
			}
			if !approx(res.Value, tt.want) {
				t.Errorf("expected %.2f, got %.2f", tt.want, res.Value)
			}
			if res.Category != tt.category {
				t.Errorf("expected %s, got %s", tt.category, res.Category)
			}
		})
	}
}

func TestBMR(t *testing.T) {
	male, err := BMR(Input{WeightKg: 70, HeightCm: 175, AgeYears: 30, Gender: domain.GenderMale})
	if err != nil {
		t.Fatalf("BMR error: %v", err)
	}
	if !approx(male.Value, 1648.75) {
		t.Errorf("expected 1648.75, got %.2f", male.Value)
	}

	female, _ := BMR(Input{WeightKg: 70, HeightCm: 175, AgeYears: 30, Gender: domain.GenderFemale})
	if !approx(female.Value, 1482.75) {
		t.Errorf("expected 1482.75, got %.2f", female.Value)
	}
}

func TestIdealBodyWeight(t *testing.T) {
	res, err := IdealBodyWeight(Input{HeightCm: 180, Gender: domain.GenderMale})
	if err != nil {
		t.Fatalf("IBW error: %v", err)
	}
	if !approx(res.Value, 74.99) {
		t.Errorf("expected 74.99, got %.2f", res.Value)
	}

	if _, err := IdealBodyWeight(Input{HeightCm: 152.4}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput at five feet, got %v", err)
	}
}

func TestCreatinineClearance(t *testing.T) {
	male, err := CreatinineClearance(Input{AgeYears: 60, WeightKg: 72, Creatinine: 1, Gender: domain.GenderMale})
	if err != nil {
		t.Fatalf("CrCl error: %v", err)
	}
	if !approx(male.Value, 80) {
		t.Errorf("expected 80, got %.2f", male.Value)
	}

	female, _ := CreatinineClearance(Input{AgeYears: 60, WeightKg: 72, Creatinine: 1, Gender: domain.GenderFemale})
	if !approx(female.Value, 68) {
		t.Errorf("expected 68, got %.2f", female.Value)
	}
}

func TestGenderIsCaseInsensitive(t *testing.T) {
	crcl, _ := CreatinineClearance(Input{AgeYears: 60, WeightKg: 72, Creatinine: 1, Gender: "Female"})
	if !approx(crcl.Value, 68) {
		t.Errorf("expected female CrCl 68, got %.2f", crcl.Value)
	}

	bmr, _ := BMR(Input{WeightKg: 70, HeightCm: 175, AgeYears: 30, Gender: "Male"})
	if !approx(bmr.Value, 1648.75) {
		t.Errorf("expected male BMR 1648.75, got %.2f", bmr.Value)
	}

	ibw, _ := IdealBodyWeight(Input{HeightCm: 180, Gender: " M "})
	if !approx(ibw.Value, 74.99) {
		t.Errorf("expected male IBW 74.99, got %.2f", ibw.Value)
	}

	var in Input
	if err := json.Unmarshal([]byte(`{"gender": "Female"}`), &in); err != nil {
		t.Fatalf("failed to decode input: %v", err)
	}
	if in.Gender != domain.GenderFemale {
		t.Errorf("expected decoded gender female, got %q", in.Gender)
	}
}

func TestInvalidInputs(t *testing.T) {
	for _, id := range IDs() {
		t.Run(id, func(t *testing.T) {
			if _, err := Run(id, Input{}); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput for zero input, got %v", err)
			}
		})
	}

	if _, err := Run("egfr", Input{}); !errors.Is(err, ErrUnknownCalculator) {
		t.Errorf("expected ErrUnknownCalculator, got %v", err)
	}
}
