package forest

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// DumpForest writes the trained model as JSON. Runtime settings such as the
// worker count and logger are not part of the model.
func (f *Forest) DumpForest(w io.Writer) error {
	if err := json.NewEncoder(w).Encode(f); err != nil {
		return errors.Wrap(err, "forest: encode")
	}
	return nil
}

// DumpFile writes the model to fileName, replacing any existing file.
func (f *Forest) DumpFile(fileName string) error {
	out, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "forest: create %s", fileName)
	}
	if err := f.DumpForest(out); err != nil {
		out.Close()
		return err
	}
	return errors.Wrapf(out.Close(), "forest: close %s", fileName)
}

// LoadForest reads a model written by DumpForest; opts supply the runtime
// settings.
func LoadForest(r io.Reader, opts ...Option) (*Forest, error) {
	f := NewForest(opts...)
	if err := json.NewDecoder(r).Decode(f); err != nil {
		return nil, errors.Wrap(err, "forest: decode")
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func LoadFile(fileName string, opts ...Option) (*Forest, error) {
	in, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "forest: open %s", fileName)
	}
	defer in.Close()
	return LoadForest(in, opts...)
}

// validate checks a model that did not come out of Train.
func (f *Forest) validate() error {
	if len(f.Trees) == 0 {
		return ErrNotTrained
	}
	if f.NFeatures <= 0 {
		return errors.Wrapf(ErrFeatureCount, "model has %d features", f.NFeatures)
	}
	for i, t := range f.Trees {
		if t == nil {
			return errors.Errorf("forest: tree %d missing", i)
		}
		if err := t.Validate(); err != nil {
			return errors.Wrapf(err, "tree %d", i)
		}
		if err := t.checkFeatures(f.NFeatures); err != nil {
			return errors.Wrapf(err, "tree %d", i)
		}
	}
	return nil
}
