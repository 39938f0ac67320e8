package spec

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/beepsoft/net.akehurst.language/grammar"
)

// Loader builds rule sets from declaration files. The rule set of an embedded rule names another
// declaration file, relative to the file embedding it; every file is built once.
type Loader struct {
	ruleSets map[string]*grammar.RuleSet
	loading  map[string]struct{}
}

func NewLoader() *Loader {
	return &Loader{
		ruleSets: map[string]*grammar.RuleSet{},
		loading:  map[string]struct{}{},
	}
}

func (l *Loader) Load(path string) (*grammar.RuleSet, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if rs, ok := l.ruleSets[path]; ok {
		return rs, nil
	}
	if _, ok := l.loading[path]; ok {
		return nil, fmt.Errorf("a declaration embeds itself: %v", path)
	}
	l.loading[path] = struct{}{}
	defer delete(l.loading, path)

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d, err := Parse(f)
	if err != nil {
		return nil, withFilePath(err, path)
	}
	d.FilePath = path
	if d.Name == "" {
		d.Name = trimExt(filepath.Base(path))
	}

	dir := filepath.Dir(path)
	rs, err := d.Build(func(name string) (*grammar.RuleSet, error) {
		if !filepath.IsAbs(name) {
			name = filepath.Join(dir, name)
		}
		return l.Load(name)
	})
	if err != nil {
		return nil, err
	}
	l.ruleSets[path] = rs
	return rs, nil
}

// LoadFile builds the rule set of one declaration file and of the files it embeds.
func LoadFile(path string) (*grammar.RuleSet, error) {
	return NewLoader().Load(path)
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
