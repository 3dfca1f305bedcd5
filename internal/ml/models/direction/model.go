// Package direction wraps a boosted-tree classifier over normalized price
// windows to estimate the probability that the next close moves up. The
// probability is reported alongside the forecast as supplementary context
// and never feeds the recommendation decision table.
package direction

import (
	"errors"
	"fmt"

	"github.com/rmera/boo"
	"github.com/rmera/boo/utils"

	"stock-insight/internal/domain"
)

const (
	classDown = 0
	classUp   = 1
)

type Model struct {
	ensemble *boo.MultiClass
}

// Train labels each window by whether its target close exceeds the last
// close of the window, then fits a multiclass boosted ensemble on the two
// classes. Returns an error when every window moves the same way, since a
// single-class dataset carries no signal worth modelling.
func Train(x [][]float64, y []float64) (*Model, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, errors.New("empty or mismatched training dataset")
	}
	labels := make([]int, len(x))
	ups := 0
	for i := range x {
		last := x[i][len(x[i])-1]
		if y[i] > last {
			labels[i] = classUp
			ups++
		} else {
			labels[i] = classDown
		}
	}
	if ups == 0 || ups == len(x) {
		return nil, fmt.Errorf("single-class direction labels (%d up of %d): %w", ups, len(x), domain.ErrTrainingFailure)
	}

	data := &utils.DataBunch{Data: x, Labels: labels}
	ensemble := boo.NewMultiClass(data, boo.DefaultXOptions())
	if ensemble == nil {
		return nil, fmt.Errorf("boosted direction ensemble returned nil: %w", domain.ErrTrainingFailure)
	}
	return &Model{ensemble: ensemble}, nil
}

// Outlook scores a single window and maps the up-probability onto a
// sentiment band. Above 0.6 reads bullish, below 0.4 bearish.
func (m *Model) Outlook(window []float64) (domain.DirectionOutlook, error) {
	probs := m.ensemble.PredictSingle(window)
	if len(probs) <= classUp {
		return domain.DirectionOutlook{}, errors.New("classifier returned too few class probabilities")
	}
	probUp := probs[classUp]
	if probUp < 0 {
		probUp = 0
	}
	if probUp > 1 {
		probUp = 1
	}

	sentiment := domain.SentimentNeutral
	switch {
	case probUp > 0.6:
		sentiment = domain.SentimentBullish
	case probUp < 0.4:
		sentiment = domain.SentimentBearish
	}
	return domain.DirectionOutlook{ProbUp: probUp, Sentiment: sentiment}, nil
}
