package spec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	verr "github.com/beepsoft/net.akehurst.language/error"
	"github.com/beepsoft/net.akehurst.language/grammar"
)

// Kinds of rule declarations.
const (
	KindLiteral       = "literal"
	KindPattern       = "pattern"
	KindConcatenation = "concatenation"
	KindChoice        = "choice"
	KindMulti         = "multi"
	KindSeparatedList = "slist"
	KindEmpty         = "empty"
	KindEmbedded      = "embedded"
)

// Declaration is a rule set written as JSON:
//
//	{
//	  "name": "expr",
//	  "rules": [
//	    {"tag": "expr", "kind": "choice", "choice": "priority_longest", "alternatives": [["num"], ["add"]]},
//	    {"tag": "add", "kind": "concatenation", "items": ["expr", "'+'", "expr"]},
//	    {"tag": "num", "kind": "pattern", "value": "[0-9]+"},
//	    {"tag": "WS", "kind": "pattern", "value": "[\\u{0020}]+", "skip": true}
//	  ]
//	}
//
// An item is the tag of a rule, a literal in single quotes or a pattern in double quotes. Literals
// and patterns used as items are declared implicitly.
type Declaration struct {
	Name  string             `json:"name"`
	Rules []*RuleDeclaration `json:"rules"`

	// FilePath is the file the declaration was read from. Errors refer to it.
	FilePath string `json:"-"`
}

type RuleDeclaration struct {
	Tag          string     `json:"tag"`
	Kind         string     `json:"kind"`
	Skip         bool       `json:"skip,omitempty"`
	Value        string     `json:"value,omitempty"`
	Items        []string   `json:"items,omitempty"`
	Choice       string     `json:"choice,omitempty"`
	Alternatives [][]string `json:"alternatives,omitempty"`
	Item         string     `json:"item,omitempty"`
	Separator    string     `json:"separator,omitempty"`
	Min          int        `json:"min,omitempty"`
	Max          *int       `json:"max,omitempty"`
	RuleSet      string     `json:"rule_set,omitempty"`
	Start        string     `json:"start,omitempty"`

	// Row is the line of the declaration file the rule starts at.
	Row int `json:"-"`
}

// Parse reads a declaration. Errors are error.SpecErrors carrying the row they were found at.
func Parse(src io.Reader) (*Declaration, error) {
	b, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return parse(b)
}

func parse(src []byte) (*Declaration, error) {
	p := &declParser{
		src: src,
		dec: json.NewDecoder(bytes.NewReader(src)),
	}
	p.dec.DisallowUnknownFields()
	d, err := p.parse()
	if err != nil {
		return nil, err
	}
	if len(d.Rules) == 0 {
		return nil, verr.SpecErrors{
			{
				Cause: synErrNoRules,
				Row:   1,
			},
		}
	}
	return d, nil
}

type declParser struct {
	src []byte
	dec *json.Decoder
}

func (p *declParser) parse() (*Declaration, error) {
	d := &Declaration{}
	if err := p.expectDelim('{', synErrNotObject); err != nil {
		return nil, err
	}
	for p.dec.More() {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, p.jsonError(err)
		}
		key, _ := tok.(string)
		switch key {
		case "name":
			if err := p.dec.Decode(&d.Name); err != nil {
				return nil, p.jsonError(err)
			}
		case "rules":
			rules, err := p.parseRules()
			if err != nil {
				return nil, err
			}
			d.Rules = rules
		default:
			return nil, verr.SpecErrors{
				{
					Cause:  synErrUnknownKey,
					Detail: key,
					Row:    p.row(p.dec.InputOffset()),
				},
			}
		}
	}
	if _, err := p.dec.Token(); err != nil {
		return nil, p.jsonError(err)
	}
	return d, nil
}

func (p *declParser) parseRules() ([]*RuleDeclaration, error) {
	if err := p.expectDelim('[', synErrRulesNotArray); err != nil {
		return nil, err
	}
	var rules []*RuleDeclaration
	for p.dec.More() {
		row := p.row(p.dec.InputOffset())
		rule := &RuleDeclaration{}
		if err := p.dec.Decode(rule); err != nil {
			return nil, verr.SpecErrors{
				{
					Cause:  synErrInvalidJSON,
					Detail: err.Error(),
					Row:    row,
				},
			}
		}
		rule.Row = row
		rules = append(rules, rule)
	}
	if _, err := p.dec.Token(); err != nil {
		return nil, p.jsonError(err)
	}
	return rules, nil
}

func (p *declParser) expectDelim(delim json.Delim, cause error) error {
	offset := p.dec.InputOffset()
	tok, err := p.dec.Token()
	if err != nil {
		return p.jsonError(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != delim {
		return verr.SpecErrors{
			{
				Cause: cause,
				Row:   p.row(offset),
			},
		}
	}
	return nil
}

func (p *declParser) jsonError(err error) error {
	offset := p.dec.InputOffset()
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		offset = int64(len(p.src))
	}
	return verr.SpecErrors{
		{
			Cause:  synErrInvalidJSON,
			Detail: err.Error(),
			Row:    p.row(offset),
		},
	}
}

// row returns the line of the first token at or after offset.
func (p *declParser) row(offset int64) int {
	i := int(offset)
	if i > len(p.src) {
		i = len(p.src)
	}
	for i < len(p.src) {
		c := p.src[i]
		if c != ' ' && c != '\t' && c != '\r' && c != '\n' && c != ',' && c != ':' {
			break
		}
		i++
	}
	return bytes.Count(p.src[:i], []byte("\n")) + 1
}

// Build declares the rules with a grammar.RuleSetBuilder and builds the rule set. Embedded rule
// sets are obtained from resolve by the name given in their declarations.
func (d *Declaration) Build(resolve func(name string) (*grammar.RuleSet, error)) (*grammar.RuleSet, error) {
	b := grammar.NewRuleSetBuilder(d.Name)
	rows := map[string]int{}
	var errs verr.SpecErrors
	for _, r := range d.Rules {
		if err := d.declare(b, r, resolve); err != nil {
			err.Tag = r.Tag
			err.Row = r.Row
			err.FilePath = d.FilePath
			errs = append(errs, err)
			continue
		}
		if _, ok := rows[r.Tag]; !ok {
			rows[r.Tag] = r.Row
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	rs, err := b.Build()
	if err != nil {
		var specErrs verr.SpecErrors
		if errors.As(err, &specErrs) {
			for _, e := range specErrs {
				e.Row = rows[e.Tag]
			}
		}
		return nil, withFilePath(err, d.FilePath)
	}
	return rs, nil
}

func (d *Declaration) declare(b *grammar.RuleSetBuilder, r *RuleDeclaration, resolve func(name string) (*grammar.RuleSet, error)) *verr.SpecError {
	if r.Tag == "" {
		return &verr.SpecError{
			Cause: synErrNoTag,
		}
	}
	if err := r.checkFields(); err != nil {
		return err
	}

	var itemErr *verr.SpecError
	items := func(ib *grammar.ItemsBuilder, list []string) {
		for _, item := range list {
			switch {
			case item == "":
				itemErr = &verr.SpecError{
					Cause: synErrEmptyItem,
				}
			case isQuoted(item, '\''):
				ib.Literal(item[1 : len(item)-1])
			case isQuoted(item, '"'):
				ib.Pattern(item[1 : len(item)-1])
			default:
				ib.Ref(item)
			}
		}
	}
	ref := func(item string) string {
		switch {
		case isQuoted(item, '\''):
			return b.ImplicitLiteral(item[1 : len(item)-1])
		case isQuoted(item, '"'):
			return b.ImplicitPattern(item[1 : len(item)-1])
		}
		return item
	}

	switch r.Kind {
	case KindLiteral:
		if r.Skip {
			b.SkipLiteral(r.Tag, r.Value)
		} else {
			b.Literal(r.Tag, r.Value)
		}
	case KindPattern:
		if r.Skip {
			b.SkipPattern(r.Tag, r.Value)
		} else {
			b.Pattern(r.Tag, r.Value)
		}
	case KindConcatenation:
		init := func(ib *grammar.ItemsBuilder) {
			items(ib, r.Items)
		}
		if r.Skip {
			b.Skip(r.Tag, init)
		} else {
			b.Concatenation(r.Tag, init)
		}
	case KindChoice:
		kind, ok := grammar.ParseChoiceKind(r.Choice)
		if !ok {
			return &verr.SpecError{
				Cause:  synErrUnknownChoice,
				Detail: r.Choice,
			}
		}
		b.Choice(r.Tag, kind, func(cb *grammar.ChoiceBuilder) {
			for _, alt := range r.Alternatives {
				alt := alt
				cb.Alt(func(ib *grammar.ItemsBuilder) {
					items(ib, alt)
				})
			}
		})
	case KindMulti:
		if r.Item == "" {
			return &verr.SpecError{
				Cause: synErrEmptyItem,
			}
		}
		b.Multi(r.Tag, r.Min, r.max(), ref(r.Item))
	case KindSeparatedList:
		if r.Item == "" || r.Separator == "" {
			return &verr.SpecError{
				Cause: synErrEmptyItem,
			}
		}
		b.SeparatedList(r.Tag, r.Min, r.max(), ref(r.Item), ref(r.Separator))
	case KindEmpty:
		b.Empty(r.Tag)
	case KindEmbedded:
		if r.RuleSet == "" || r.Start == "" {
			return &verr.SpecError{
				Cause: synErrNoRuleSet,
			}
		}
		if resolve == nil {
			return &verr.SpecError{
				Cause:  synErrNoRuleSet,
				Detail: r.RuleSet,
			}
		}
		rs, err := resolve(r.RuleSet)
		if err != nil {
			return &verr.SpecError{
				Cause:  synErrNoRuleSet,
				Detail: fmt.Sprintf("%v: %v", r.RuleSet, err),
			}
		}
		b.Embedded(r.Tag, rs, r.Start)
	default:
		return &verr.SpecError{
			Cause:  synErrUnknownKind,
			Detail: r.Kind,
		}
	}
	return itemErr
}

func (r *RuleDeclaration) max() int {
	if r.Max == nil {
		return grammar.MultiMax
	}
	return *r.Max
}

// checkFields rejects fields that the kind of the rule does not read.
func (r *RuleDeclaration) checkFields() *verr.SpecError {
	var unused []string
	add := func(used bool, name string) {
		if used {
			unused = append(unused, name)
		}
	}
	switch r.Kind {
	case KindLiteral, KindPattern:
		add(len(r.Items) > 0, "items")
		add(len(r.Alternatives) > 0, "alternatives")
		add(r.Item != "", "item")
	case KindConcatenation:
		add(r.Value != "", "value")
		add(len(r.Alternatives) > 0, "alternatives")
	case KindChoice:
		add(r.Value != "", "value")
		add(len(r.Items) > 0, "items")
		add(r.Skip, "skip")
	case KindMulti, KindSeparatedList, KindEmpty, KindEmbedded:
		add(r.Value != "", "value")
		add(len(r.Items) > 0, "items")
		add(len(r.Alternatives) > 0, "alternatives")
		add(r.Skip, "skip")
	}
	if len(unused) > 0 {
		return &verr.SpecError{
			Cause:  synErrUnexpectedField,
			Detail: strings.Join(unused, ", "),
		}
	}
	return nil
}

func isQuoted(s string, quote byte) bool {
	return len(s) >= 2 && s[0] == quote && s[len(s)-1] == quote
}

func withFilePath(err error, path string) error {
	var specErrs verr.SpecErrors
	if errors.As(err, &specErrs) {
		for _, e := range specErrs {
			e.FilePath = path
		}
	}
	return err
}
