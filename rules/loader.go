// Package rules loads snippet and mutation-collection definition files.
// Files are YAML, laid out either flat or in per-language directories; in
// the latter case the directory name supplies a record's language when the
// record itself leaves it empty. Only directory names that are registered
// language tags count: a flat layout never tags records with the rules
// directory's own name.
package rules

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/snow-ghost/rewriter/core"
	"github.com/snow-ghost/rewriter/grammar"
)

type fileDoc struct {
	Snippets    []snippetDoc    `yaml:"snippets"`
	Collections []collectionDoc `yaml:"collections"`
}

type snippetDoc struct {
	Description string `yaml:"description"`
	Language    string `yaml:"language"`
	Body        string `yaml:"body"`
}

type collectionDoc struct {
	Description string    `yaml:"description"`
	Language    string    `yaml:"language"`
	Rules       []ruleDoc `yaml:"rules"`
}

type ruleDoc struct {
	Expression string       `yaml:"expression"`
	Template   []segmentDoc `yaml:"template"`
}

// segmentDoc is a one-key map: literal or capture.
type segmentDoc struct {
	Literal *string `yaml:"literal"`
	Capture *string `yaml:"capture"`
}

// Loader reads definition files from a directory tree.
type Loader struct {
	dir    string
	logger *slog.Logger
	known  map[string]struct{}
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	known := make(map[string]struct{})
	for _, tag := range grammar.NewRegistry().Tags() {
		known[tag] = struct{}{}
	}
	return &Loader{dir: dir, logger: logger, known: known}
}

// Load walks the directory and decodes every .yaml/.yml file. Entries that
// fail validation are rejected and logged; loading continues so one bad
// definition never blocks the rest.
func (l *Loader) Load() ([]core.Snippet, []core.MutationCollection, error) {
	var snippets []core.Snippet
	var collections []core.MutationCollection

	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		s, c, err := l.loadFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		snippets = append(snippets, s...)
		collections = append(collections, c...)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return snippets, collections, nil
}

func (l *Loader) loadFile(path string) ([]core.Snippet, []core.MutationCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read definition file: %w", err)
	}

	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse YAML: %w", err)
	}

	// Per-language layout: rules/<lang>/file.yaml. In a flat layout the
	// parent directory is not a language tag and supplies nothing.
	dirLang := filepath.Base(filepath.Dir(path))
	if _, ok := l.known[dirLang]; !ok {
		dirLang = ""
	}

	var snippets []core.Snippet
	for _, s := range doc.Snippets {
		snippet := core.Snippet{Description: s.Description, Language: s.Language, Body: s.Body}
		if snippet.Language == "" {
			snippet.Language = dirLang
		}
		if snippet.Description == "" || snippet.Body == "" {
			l.logger.Warn("snippet rejected", "file", path, "error", "missing description or body")
			continue
		}
		if snippet.Language == "" {
			l.logger.Warn("snippet rejected", "file", path, "description", snippet.Description,
				"error", "no language and not in a per-language directory")
			continue
		}
		snippets = append(snippets, snippet)
	}

	var collections []core.MutationCollection
	for _, c := range doc.Collections {
		collection, err := c.toCollection(dirLang)
		if err == nil {
			err = collection.Validate()
		}
		if err != nil {
			l.logger.Warn("collection rejected", "file", path, "description", c.Description, "error", err)
			continue
		}
		collections = append(collections, collection)
	}
	return snippets, collections, nil
}

func (c collectionDoc) toCollection(dirLang string) (core.MutationCollection, error) {
	out := core.MutationCollection{Description: c.Description, Language: c.Language}
	if out.Language == "" {
		out.Language = dirLang
	}
	for i, r := range c.Rules {
		rule := core.MutationRule{Expression: r.Expression}
		for _, seg := range r.Template {
			switch {
			case seg.Literal != nil && seg.Capture == nil:
				rule.Template = append(rule.Template, core.Literal(*seg.Literal))
			case seg.Capture != nil && seg.Literal == nil:
				rule.Template = append(rule.Template, core.CaptureRef(*seg.Capture))
			default:
				return out, fmt.Errorf("%w: rule %d: template segment needs exactly one of literal or capture",
					core.ErrConfigInvalid, i)
			}
		}
		out.Rules = append(out.Rules, rule)
	}
	return out, nil
}
