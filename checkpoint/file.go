package checkpoint

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/renameio/v2"

	"github.com/djeday123/bigram/nn"
	"github.com/djeday123/bigram/tokenizer"
)

// writeFile streams into a pending file next to path and atomically
// replaces path with it once write succeeds.
func writeFile(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := renameio.NewPendingFile(path, renameio.WithTempDir(dir), renameio.WithPermissions(0o644))
	if err != nil {
		return err
	}
	defer f.Cleanup()

	if err := write(f); err != nil {
		return err
	}
	return f.CloseAtomicallyReplace()
}

// SaveModelFile writes form A to path.
func SaveModelFile(path string, model *nn.Bigram, vocab *tokenizer.Vocabulary, meta Meta) error {
	return writeFile(path, func(w io.Writer) error {
		return SaveModel(w, model, vocab, meta)
	})
}

// LoadModelFile reads form A from path.
func LoadModelFile(path string, opts ...nn.Option) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadModel(f, opts...)
}

// SaveStateDictFile writes form B to path.
func SaveStateDictFile(path string, sd nn.StateDict, opts SaveOptions) error {
	return writeFile(path, func(w io.Writer) error {
		return SaveStateDict(w, sd, opts)
	})
}

// LoadStateDictFile reads form B from path.
func LoadStateDictFile(path string) (nn.StateDict, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadStateDict(f)
}

// TensorInfo describes one stored array.
type TensorInfo struct {
	Name  string `json:"name" yaml:"name"`
	Shape []int  `json:"shape" yaml:"shape"`
	DType string `json:"dtype" yaml:"dtype"`
	Bytes int    `json:"bytes" yaml:"bytes"`
}

// Info summarises an artifact of either form.
type Info struct {
	Path      string       `json:"path" yaml:"path"`
	Kind      string       `json:"kind" yaml:"kind"`
	Version   int          `json:"version" yaml:"version"`
	FileBytes int64        `json:"file_bytes" yaml:"file_bytes"`
	VocabSize int          `json:"vocab_size,omitempty" yaml:"vocab_size,omitempty"`
	Symbols   string       `json:"symbols,omitempty" yaml:"symbols,omitempty"`
	Meta      *Meta        `json:"meta,omitempty" yaml:"meta,omitempty"`
	Tensors   []TensorInfo `json:"tensors" yaml:"tensors"`
}

// Inspect decodes the artifact at path without building a model.
func Inspect(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	env, err := decode(f, "")
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", path, err)
	}

	info := &Info{
		Path:      path,
		Kind:      env.Kind,
		Version:   env.Version,
		FileBytes: st.Size(),
		VocabSize: env.VocabSize,
		Meta:      env.Meta,
	}
	if env.Vocab != nil {
		runes := make([]rune, len(env.Vocab.Symbols))
		for i, s := range env.Vocab.Symbols {
			runes[i] = rune(s)
		}
		info.Symbols = fmt.Sprintf("%q", string(runes))
	}
	for name, a := range env.Tensors {
		info.Tensors = append(info.Tensors, TensorInfo{
			Name: name, Shape: a.Shape, DType: a.DType.String(), Bytes: a.ByteSize(),
		})
	}
	sort.Slice(info.Tensors, func(i, j int) bool { return info.Tensors[i].Name < info.Tensors[j].Name })
	return info, nil
}
