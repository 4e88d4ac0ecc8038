package nn

import (
	"fmt"
	"math"
)

// GradCheckEntry compares one table entry's analytic and numeric gradient.
type GradCheckEntry struct {
	Param    string
	Row, Col int
	Analytic float64
	Numeric  float64
	RelErr   float64
}

// GradCheckResult collects the checked entries.
type GradCheckResult struct {
	Loss      float64
	Entries   []GradCheckEntry
	MaxRelErr float64
}

// GradCheck compares the analytic gradient of the loss on (inputs, targets)
// with central finite differences on up to samples table entries. Rows are
// taken from the input ids so the checked entries carry signal. The table
// is restored afterwards and the gradient is left holding the analytic value.
func GradCheck(m *Bigram, inputs, targets [][]int, eps float64, samples int) (*GradCheckResult, error) {
	if eps <= 0 {
		return nil, fmt.Errorf("gradcheck: eps must be positive, got %g", eps)
	}
	if samples < 1 {
		return nil, fmt.Errorf("gradcheck: samples must be positive, got %d", samples)
	}

	m.ZeroGrad()
	_, loss, err := m.Forward(inputs, targets, ModeTrain)
	if err != nil {
		return nil, err
	}
	res := &GradCheckResult{Loss: loss}

	rows := distinctIDs(inputs)
	v := m.VocabSize()
	p := m.TokEmbed.Weight
	for k := 0; k < samples && k < len(rows)*v; k++ {
		i := rows[k%len(rows)]
		j := k / len(rows)

		original := p.Value.At(i, j)
		p.Value.Set(i, j, original+eps)
		_, lossPlus, err := m.Forward(inputs, targets, ModeNoGrad)
		if err != nil {
			p.Value.Set(i, j, original)
			return nil, err
		}
		p.Value.Set(i, j, original-eps)
		_, lossMinus, err := m.Forward(inputs, targets, ModeNoGrad)
		p.Value.Set(i, j, original)
		if err != nil {
			return nil, err
		}

		num := (lossPlus - lossMinus) / (2 * eps)
		ana := p.Grad.At(i, j)
		rel := math.Abs(num-ana) / (math.Abs(num) + math.Abs(ana) + 1e-8)
		res.Entries = append(res.Entries, GradCheckEntry{
			Param: p.Name, Row: i, Col: j, Analytic: ana, Numeric: num, RelErr: rel,
		})
		res.MaxRelErr = math.Max(res.MaxRelErr, rel)
	}
	return res, nil
}

// distinctIDs lists ids in order of first appearance.
func distinctIDs(ids [][]int) []int {
	seen := map[int]bool{}
	var out []int
	for _, row := range ids {
		for _, id := range row {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
