package opt

import (
	"errors"
	"math"
	"testing"
)

func TestNelderMeadOnSphere(t *testing.T) {
	optimizer := NewNelderMead(0)

	start := []float64{4, -4, 4}
	best, cost, err := optimizer.Run(sphere, start)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(best) != len(start) {
		t.Fatalf("Expected %d parameters, got %d", len(start), len(best))
	}
	if cost > 1e-6 {
		t.Errorf("Expected cost near 0, got %g", cost)
	}
	for i, v := range best {
		if math.Abs(v) > 1e-2 {
			t.Errorf("Parameter %d = %f, expected near 0", i, v)
		}
	}
}

func TestNelderMeadQuadraticLoss(t *testing.T) {
	// Shifted quadratic with minimum at (2, -1.5)
	target := []float64{2, -1.5}
	loss := func(x []float64) float64 {
		var sum float64
		for i, v := range x {
			d := v - target[i]
			sum += d * d
		}
		return sum
	}

	best, _, err := NewNelderMead(0).Run(loss, []float64{0, 0})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i, v := range best {
		if math.Abs(v-target[i]) > 1e-3 {
			t.Errorf("Parameter %d = %f, expected %f", i, v, target[i])
		}
	}
}

func TestNelderMeadBudgetExhaustion(t *testing.T) {
	// Tiny evaluation budget cannot converge; the adapter must still return
	// a best-effort vector, flagged with ErrNotConverged.
	optimizer := NewNelderMead(3)

	best, _, err := optimizer.Run(sphere, []float64{10, 10, 10, 10})
	if err == nil {
		t.Fatal("Expected non-convergence error for a 3-evaluation budget")
	}
	if !errors.Is(err, ErrNotConverged) {
		t.Errorf("Expected ErrNotConverged, got %v", err)
	}
	if len(best) != 4 {
		t.Errorf("Expected best-effort vector of length 4, got %d", len(best))
	}
}
