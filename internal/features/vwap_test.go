package features

import (
	"math"
	"testing"
)

func TestVWAP_Calc(t *testing.T) {
	t.Parallel()

	var v VWAP
	v.Add(100, 1)
	v.Add(102, 3)

	value, std := v.Calc()
	expectedVWAP := (100*1 + 102*3) / 4.0
	if math.Abs(value-expectedVWAP) > 1e-10 {
		t.Errorf("Expected VWAP %.10f, got %.10f", expectedVWAP, value)
	}
	// prices 100 and 102: population std is 1
	if math.Abs(std-1) > 1e-10 {
		t.Errorf("Expected std 1, got %.10f", std)
	}
}

func TestVWAP_Empty(t *testing.T) {
	var v VWAP
	value, std := v.Calc()
	if value != 0 || std != 0 {
		t.Errorf("Expected zero values for empty VWAP, got %f, %f", value, std)
	}
}

func TestVWAP_ZeroVolumeFallsBackToMean(t *testing.T) {
	var v VWAP
	v.Add(10, 0)
	v.Add(20, 0)

	value, _ := v.Calc()
	if value != 15 {
		t.Errorf("Expected mean price 15, got %f", value)
	}
}

func TestVWAP_Reset(t *testing.T) {
	var v VWAP
	v.Add(10, 1)
	v.Reset()
	if value, _ := v.Calc(); value != 0 {
		t.Errorf("Expected 0 after reset, got %f", value)
	}
}

func BenchmarkVWAP_Add(b *testing.B) {
	var v VWAP
	for i := 0; i < b.N; i++ {
		v.Add(100+float64(i%10), 1)
	}
}
