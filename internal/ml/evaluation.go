package ml

// ConfusionMatrix counts predictions against ground truth, with CONFIRMED as
// the positive class.
type ConfusionMatrix struct {
	TruePositive  int `json:"true_positive"`
	FalsePositive int `json:"false_positive"`
	TrueNegative  int `json:"true_negative"`
	FalseNegative int `json:"false_negative"`
}

// Total is the number of rows evaluated.
func (c ConfusionMatrix) Total() int {
	return c.TruePositive + c.FalsePositive + c.TrueNegative + c.FalseNegative
}

// Evaluation summarizes a model's fit on its own training rows.
type Evaluation struct {
	Matrix    ConfusionMatrix `json:"confusion_matrix"`
	Accuracy  float64         `json:"accuracy"`
	Precision float64         `json:"precision"`
	Recall    float64         `json:"recall"`
	F1        float64         `json:"f1_score"`
}

// Evaluate classifies rows with m and scores the outcome. On the training
// rows it is a resubstitution estimate, used for reporting only.
func Evaluate(m *TrainedModel, rows []LabeledRow) Evaluation {
	_, e := ScoreRows(m, rows)
	return e
}

// ScoreRows classifies rows with m and returns each result, in row order,
// together with the evaluation they add up to.
func ScoreRows(m *TrainedModel, rows []LabeledRow) ([]ClassificationResult, Evaluation) {
	results := make([]ClassificationResult, len(rows))
	var cm ConfusionMatrix
	for i, r := range rows {
		results[i] = Classify(r.Vector, m)
		predicted := results[i].IsConfirmed
		actual := r.Disposition == Confirmed
		switch {
		case predicted && actual:
			cm.TruePositive++
		case predicted && !actual:
			cm.FalsePositive++
		case !predicted && actual:
			cm.FalseNegative++
		default:
			cm.TrueNegative++
		}
	}
	return results, cm.Evaluation()
}

// Evaluation derives the rate metrics. Undefined ratios are 0.
func (c ConfusionMatrix) Evaluation() Evaluation {
	e := Evaluation{Matrix: c}
	e.Accuracy = ratio(c.TruePositive+c.TrueNegative, c.Total())
	e.Precision = ratio(c.TruePositive, c.TruePositive+c.FalsePositive)
	e.Recall = ratio(c.TruePositive, c.TruePositive+c.FalseNegative)
	if e.Precision+e.Recall > 0 {
		e.F1 = 2 * e.Precision * e.Recall / (e.Precision + e.Recall)
	}
	return e
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
