package ml

import (
	"math"
	"strings"

	"koi-classifier/internal/common"
	"koi-classifier/internal/features"
	"koi-classifier/internal/ingest"
)

// Disposition is the ground-truth class of a training row.
type Disposition int

const (
	Unlabeled Disposition = iota
	Confirmed
	FalsePositive
)

func (d Disposition) String() string {
	switch d {
	case Confirmed:
		return common.DispositionConfirmed
	case FalsePositive:
		return common.DispositionFalsePositive
	default:
		return "UNLABELED"
	}
}

// Label columns in lookup order. Disposition columns win over the binary label.
var labelColumns = []string{"disposition", "koi_disposition", "label"}

// LabeledRow is a training row with its class and the raw label text.
type LabeledRow struct {
	Line        int
	Vector      features.Vector
	Present     features.Mask
	Disposition Disposition
	RawLabel    string
}

// ParseDisposition maps a disposition cell to a class, ignoring case.
func ParseDisposition(s string) Disposition {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case common.DispositionConfirmed:
		return Confirmed
	case common.DispositionFalsePositive:
		return FalsePositive
	default:
		return Unlabeled
	}
}

// labelFromValue resolves a label cell. Binary labels are 1 and 0; a
// disposition column may carry either text or the binary form.
func labelFromValue(v ingest.Value) (Disposition, string) {
	switch v.Kind {
	case ingest.Number:
		switch v.Num {
		case 1:
			return Confirmed, v.String()
		case 0:
			return FalsePositive, v.String()
		}
		return Unlabeled, v.String()
	case ingest.Text:
		return ParseDisposition(v.Str), v.Str
	default:
		return Unlabeled, ""
	}
}

// LabelColumns returns the label columns present in header, in lookup order.
func LabelColumns(header []string) []string {
	var found []string
	for _, c := range labelColumns {
		for _, h := range header {
			if h == c {
				found = append(found, c)
				break
			}
		}
	}
	return found
}

// ToLabeledRow converts a parsed row. The first label column holding a
// recognized value decides the class; ok is false when none does.
func ToLabeledRow(row ingest.Row, labelCols []string) (LabeledRow, bool) {
	lr := LabeledRow{Line: row.Line}
	for _, f := range features.All() {
		v, present := row.Get(f.String())
		if !present {
			continue
		}
		if x, ok := v.Float(); ok {
			lr.Vector[f] = x
			lr.Present = lr.Present.With(f)
		}
	}

	for _, c := range labelCols {
		v, ok := row.Get(c)
		if !ok {
			continue
		}
		d, raw := labelFromValue(v)
		if d != Unlabeled {
			lr.Disposition = d
			lr.RawLabel = raw
			return lr, true
		}
	}
	return lr, false
}

// SplitByClass partitions rows into confirmed and false-positive sets.
func SplitByClass(rows []LabeledRow) (confirmed, falsePositive []LabeledRow) {
	for _, r := range rows {
		switch r.Disposition {
		case Confirmed:
			confirmed = append(confirmed, r)
		case FalsePositive:
			falsePositive = append(falsePositive, r)
		}
	}
	return confirmed, falsePositive
}

// HoldoutSplit moves round(testSize·n) rows of each class into test, spread
// evenly through the class and keeping input order. Every class keeps at
// least one training row. testSize <= 0 returns rows unchanged.
func HoldoutSplit(rows []LabeledRow, testSize float64) (train, test []LabeledRow) {
	if testSize <= 0 {
		return rows, nil
	}

	picked := make(map[int]bool)
	classIndex := map[Disposition][]int{}
	for i, r := range rows {
		classIndex[r.Disposition] = append(classIndex[r.Disposition], i)
	}
	for _, idx := range classIndex {
		n := len(idx)
		k := int(math.Round(float64(n) * testSize))
		if k >= n {
			k = n - 1
		}
		if k <= 0 {
			continue
		}
		// Row j is picked when floor(j·k/n) steps, which happens exactly k times.
		for j := range idx {
			if (j+1)*k/n != j*k/n {
				picked[idx[j]] = true
			}
		}
	}

	for i, r := range rows {
		if picked[i] {
			test = append(test, r)
		} else {
			train = append(train, r)
		}
	}
	return train, test
}
