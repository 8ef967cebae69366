package patterns

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/corolab/coroviz/timeline"
)

// patternFile is the on-disk shape of a user-authored pattern.
type patternFile struct {
	ID      string     `yaml:"id"`
	Title   string     `yaml:"title"`
	Summary string     `yaml:"summary,omitempty"`
	Steps   []stepFile `yaml:"steps"`
}

type stepFile struct {
	DelayMs int    `yaml:"delayMs"`
	Log     string `yaml:"log"`
	State   string `yaml:"state"`
	Payload any    `yaml:"payload,omitempty"`
}

// Parse reads one YAML pattern. Structural problems surface as
// timeline.ErrInvalidDefinition so that authoring mistakes are caught at
// load time, never mid-animation.
func Parse(r io.Reader) (Pattern, error) {
	var file patternFile

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&file); err != nil {
		return Pattern{}, fmt.Errorf("parsing pattern: %w", err)
	}

	return file.toPattern()
}

func (f patternFile) toPattern() (Pattern, error) {
	builder := timeline.MakeDefinitionBuilder().WithID(f.ID)

	for i, s := range f.Steps {
		state, err := timeline.ParseRunState(s.State)
		if err != nil {
			return Pattern{}, fmt.Errorf("%w: pattern %q, step %d: %v",
				timeline.ErrInvalidDefinition, f.ID, i, err)
		}

		builder = builder.WithPayloadStep(
			time.Duration(s.DelayMs)*time.Millisecond,
			s.Log,
			state,
			s.Payload,
		)
	}

	def, err := builder.Build()
	if err != nil {
		return Pattern{}, err
	}

	title := f.Title
	if title == "" {
		title = f.ID
	}

	return Pattern{
		Def:     def,
		Title:   title,
		Summary: f.Summary,
	}, nil
}

// LoadFile reads one pattern from a YAML file.
func LoadFile(path string) (Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		return Pattern{}, fmt.Errorf("opening pattern file: %w", err)
	}
	defer f.Close()

	p, err := Parse(f)
	if err != nil {
		return Pattern{}, fmt.Errorf("%s: %w", path, err)
	}

	return p, nil
}

// LoadDir reads every .yaml/.yml file in dir, sorted by file name. The
// first malformed file aborts the load.
func LoadDir(dir string) ([]Pattern, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading pattern directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var patterns []Pattern
	for _, name := range names {
		p, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}

		patterns = append(patterns, p)
	}

	return patterns, nil
}
