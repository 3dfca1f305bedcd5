// Package recurrent implements a small Elman recurrent network trained with
// backpropagation through time. It is the optional forecasting backend for
// callers that prefer a sequence model over gradient-boosted trees.
package recurrent

import (
	"errors"
	"math"
	"math/rand"
)

type TrainOptions struct {
	HiddenSize   int
	Epochs       int
	LearningRate float64
	Seed         int64
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		HiddenSize:   16,
		Epochs:       10,
		LearningRate: 0.01,
		Seed:         42,
	}
}

// Model holds the network weights. Each timestep consumes a single scalar,
// so Wx has one column per hidden unit.
type Model struct {
	hidden int
	wx     []float64   // input -> hidden
	wh     [][]float64 // hidden -> hidden
	bh     []float64
	wy     []float64 // hidden -> output
	by     float64
}

// Train runs full-sequence BPTT over every window for a fixed number of
// epochs. The RNG is seeded explicitly so repeated runs on the same data
// produce identical weights.
func Train(x [][]float64, y []float64, opts TrainOptions) (*Model, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, errors.New("empty or mismatched training dataset")
	}
	if len(x[0]) == 0 {
		return nil, errors.New("empty input windows")
	}
	if opts.HiddenSize <= 0 {
		opts.HiddenSize = DefaultTrainOptions().HiddenSize
	}
	if opts.Epochs <= 0 {
		opts.Epochs = DefaultTrainOptions().Epochs
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultTrainOptions().LearningRate
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	h := opts.HiddenSize
	m := &Model{
		hidden: h,
		wx:     make([]float64, h),
		wh:     make([][]float64, h),
		bh:     make([]float64, h),
		wy:     make([]float64, h),
	}
	scale := 1.0 / math.Sqrt(float64(h))
	for i := 0; i < h; i++ {
		m.wx[i] = (rng.Float64()*2 - 1) * scale
		m.wy[i] = (rng.Float64()*2 - 1) * scale
		m.wh[i] = make([]float64, h)
		for j := 0; j < h; j++ {
			m.wh[i][j] = (rng.Float64()*2 - 1) * scale
		}
	}

	steps := len(x[0])
	hiddens := make([][]float64, steps+1)
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		for s := range x {
			window := x[s]
			if len(window) != steps {
				return nil, errors.New("ragged input windows")
			}

			// forward
			hiddens[0] = make([]float64, h)
			for t := 0; t < steps; t++ {
				hiddens[t+1] = m.step(window[t], hiddens[t])
			}
			out := m.readout(hiddens[steps])
			errOut := out - y[s]

			// backward
			dWy := make([]float64, h)
			dWx := make([]float64, h)
			dBh := make([]float64, h)
			dWh := make([][]float64, h)
			for i := range dWh {
				dWh[i] = make([]float64, h)
			}

			dh := make([]float64, h)
			for i := 0; i < h; i++ {
				dWy[i] = errOut * hiddens[steps][i]
				dh[i] = errOut * m.wy[i]
			}
			for t := steps - 1; t >= 0; t-- {
				dRaw := make([]float64, h)
				for i := 0; i < h; i++ {
					ht := hiddens[t+1][i]
					dRaw[i] = dh[i] * (1 - ht*ht)
					dWx[i] += dRaw[i] * window[t]
					dBh[i] += dRaw[i]
					for j := 0; j < h; j++ {
						dWh[i][j] += dRaw[i] * hiddens[t][j]
					}
				}
				next := make([]float64, h)
				for j := 0; j < h; j++ {
					for i := 0; i < h; i++ {
						next[j] += dRaw[i] * m.wh[i][j]
					}
				}
				dh = next
			}

			lr := opts.LearningRate
			m.by -= lr * errOut
			for i := 0; i < h; i++ {
				m.wy[i] -= lr * clip(dWy[i])
				m.wx[i] -= lr * clip(dWx[i])
				m.bh[i] -= lr * clip(dBh[i])
				for j := 0; j < h; j++ {
					m.wh[i][j] -= lr * clip(dWh[i][j])
				}
			}
		}
	}
	return m, nil
}

func (m *Model) Predict(window []float64) float64 {
	hidden := make([]float64, m.hidden)
	for _, v := range window {
		hidden = m.step(v, hidden)
	}
	return m.readout(hidden)
}

func (m *Model) step(input float64, prev []float64) []float64 {
	next := make([]float64, m.hidden)
	for i := 0; i < m.hidden; i++ {
		sum := m.wx[i]*input + m.bh[i]
		for j := 0; j < m.hidden; j++ {
			sum += m.wh[i][j] * prev[j]
		}
		next[i] = math.Tanh(sum)
	}
	return next
}

func (m *Model) readout(hidden []float64) float64 {
	out := m.by
	for i := 0; i < m.hidden; i++ {
		out += m.wy[i] * hidden[i]
	}
	return out
}

// clip keeps BPTT gradients bounded on long windows.
func clip(g float64) float64 {
	const limit = 5.0
	if g > limit {
		return limit
	}
	if g < -limit {
		return -limit
	}
	return g
}
