package regress

// LossFunc maps a coefficient vector to a scalar loss.
type LossFunc func(beta []float64) float64

// SumSquaredResiduals returns the loss L(beta) = sum_i (y_i - x_i' beta)^2
// over the dataset. The sum form (not the mean) is deliberate: optimizer
// convergence behavior and the loss scale depend on it.
func SumSquaredResiduals(d *Dataset) LossFunc {
	n, p := d.Dims()

	return func(beta []float64) float64 {
		var sum float64
		for i := 0; i < n; i++ {
			row := d.X.RawRowView(i)
			var pred float64
			for j := 0; j < p; j++ {
				pred += row[j] * beta[j]
			}
			r := d.Y[i] - pred
			sum += r * r
		}
		return sum
	}
}
