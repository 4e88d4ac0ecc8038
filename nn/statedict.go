package nn

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/djeday123/bigram/core"
)

// StateDict maps parameter names to their values.
type StateDict map[string]*mat.Dense

// Names returns the keys in sorted order.
func (sd StateDict) Names() []string {
	names := make([]string, 0, len(sd))
	for n := range sd {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// StateDict returns copies of every parameter keyed by name.
func (m *Bigram) StateDict() StateDict {
	sd := make(StateDict)
	for _, p := range m.Parameters() {
		sd[p.Name] = mat.DenseCopyOf(p.Value)
	}
	return sd
}

// LoadStateDict copies sd into the model's parameters. Every parameter must
// be present with a matching shape; nothing is modified otherwise.
func (m *Bigram) LoadStateDict(sd StateDict) error {
	params := m.Parameters()
	for _, p := range params {
		v, ok := sd[p.Name]
		if !ok {
			return fmt.Errorf("load state dict: missing %q", p.Name)
		}
		wr, wc := p.Value.Dims()
		r, c := v.Dims()
		if r != wr || c != wc {
			return fmt.Errorf("%w: %s is %dx%d, model expects %dx%d", core.ErrShapeMismatch, p.Name, r, c, wr, wc)
		}
	}
	if len(sd) != len(params) {
		for name := range sd {
			if !m.hasParameter(name) {
				return fmt.Errorf("load state dict: unexpected %q", name)
			}
		}
	}
	for _, p := range params {
		p.Value.Copy(sd[p.Name])
	}
	return nil
}

func (m *Bigram) hasParameter(name string) bool {
	for _, p := range m.Parameters() {
		if p.Name == name {
			return true
		}
	}
	return false
}
