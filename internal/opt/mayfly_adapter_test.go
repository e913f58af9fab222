package opt

import (
	"math"
	"testing"
)

// Sphere function: f(x) = sum(x_i^2), minimum at origin
func sphere(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum
}

func TestMayflyAdapterOnSphere(t *testing.T) {
	optimizer := NewMayfly(100, 20, 42, -10, 10) // maxIters, popSize, seed, bounds

	start := []float64{5, 5, 5}
	best, cost, err := optimizer.Run(sphere, start)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(best) != len(start) {
		t.Fatalf("Expected %d parameters, got %d", len(start), len(best))
	}

	// Should converge close to zero
	if cost > 0.1 {
		t.Errorf("Expected cost near 0, got %f", cost)
	}

	// Check that best params are near origin
	for i, v := range best {
		if math.Abs(v) > 1.0 {
			t.Errorf("Parameter %d = %f, expected near 0", i, v)
		}
	}
}

func TestMayflyAdapterDeterministic(t *testing.T) {
	start := []float64{3, -3}

	// Run twice with same seed (popSize must be >=20 for mayfly v0.1.0)
	optimizer1 := NewMayfly(50, 20, 123, -5, 5)
	_, cost1, err := optimizer1.Run(sphere, start)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	optimizer2 := NewMayfly(50, 20, 123, -5, 5)
	_, cost2, err := optimizer2.Run(sphere, start)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if cost1 != cost2 {
		t.Errorf("Non-deterministic: cost1=%f, cost2=%f", cost1, cost2)
	}
}
