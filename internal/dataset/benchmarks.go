package dataset

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/cargoflow/partner-pulse/internal/model"
)

// benchmarkFile is the on-disk shape of a benchmark snapshot.
type benchmarkFile struct {
	Benchmarks map[string]model.Benchmark `yaml:"benchmarks"`
}

// LoadBenchmarksYAML reads a partner benchmark snapshot keyed by partner id.
func LoadBenchmarksYAML(r io.Reader) (map[string]model.Benchmark, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read benchmarks")
	}

	var file benchmarkFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, eris.Wrap(err, "dataset: parse benchmarks yaml")
	}
	return file.Benchmarks, nil
}

// LoadBenchmarksFile is a convenience wrapper over LoadBenchmarksYAML.
func LoadBenchmarksFile(path string) (map[string]model.Benchmark, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open benchmarks file")
	}
	defer f.Close()
	return LoadBenchmarksYAML(f)
}
