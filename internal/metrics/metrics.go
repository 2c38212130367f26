// Package metrics provides lightweight training counters: running sums,
// weighted means, and a Bag that names them, snapshots them per step,
// and syncs them across a gang of workers.
package metrics

// Sum accumulates a running total.
type Sum struct {
	total float64
}

// Update adds value to the total.
func (s *Sum) Update(value float64) {
	s.total += value
}

// Value returns the accumulated total.
func (s *Sum) Value() float64 {
	return s.total
}

// Reset sets the total back to zero.
func (s *Sum) Reset() {
	s.total = 0
}

// Mean tracks a weighted running mean.
type Mean struct {
	sum    float64
	weight float64
}

// Update adds value with the given weight.
func (m *Mean) Update(value, weight float64) {
	m.sum += value * weight
	m.weight += weight
}

// Value returns the weighted mean, or zero before any update.
func (m *Mean) Value() float64 {
	if m.weight == 0 {
		return 0
	}
	return m.sum / m.weight
}

// Weight returns the total weight seen so far.
func (m *Mean) Weight() float64 {
	return m.weight
}

// Reset clears the accumulated sum and weight.
func (m *Mean) Reset() {
	m.sum = 0
	m.weight = 0
}
