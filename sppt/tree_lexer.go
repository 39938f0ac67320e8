package sppt

import (
	"fmt"
	"strings"
	"sync"

	mlcompiler "github.com/nihei9/maleeni/compiler"
	mldriver "github.com/nihei9/maleeni/driver"
	mlspec "github.com/nihei9/maleeni/spec"
)

type tokenKind string

const (
	tokenKindName    = tokenKind("name")
	tokenKindLiteral = tokenKind("literal")
	tokenKindEmpty   = tokenKind("empty")
	tokenKindColon   = tokenKind("colon")
	tokenKindLBrace  = tokenKind("l_brace")
	tokenKindRBrace  = tokenKind("r_brace")
	tokenKindEOF     = tokenKind("eof")
	tokenKindInvalid = tokenKind("invalid")
)

type Position struct {
	Row int
	Col int
}

func (p Position) String() string {
	return fmt.Sprintf("%v:%v", p.Row, p.Col)
}

type token struct {
	kind tokenKind
	text string
	pos  Position
}

var treeLexEntries = []*mlspec.LexEntry{
	{
		Kind:    mlspec.LexKindName("white_space"),
		Pattern: mlspec.LexPattern(`[\u{0009}\u{000A}\u{000D}\u{0020}]+`),
	},
	{
		Kind:    mlspec.LexKindName(tokenKindEmpty),
		Pattern: mlspec.LexPattern(`[§$]empty`),
	},
	{
		Kind:    mlspec.LexKindName(tokenKindName),
		Pattern: mlspec.LexPattern(`[A-Za-z_][0-9A-Za-z_]*`),
	},
	{
		Kind:    mlspec.LexKindName(tokenKindLiteral),
		Pattern: mlspec.LexPattern(`'([^'\u{005C}]|\u{005C}.)*'`),
	},
	{
		Kind:    mlspec.LexKindName(tokenKindColon),
		Pattern: mlspec.LexPattern(`:`),
	},
	{
		Kind:    mlspec.LexKindName(tokenKindLBrace),
		Pattern: mlspec.LexPattern(`[{]`),
	},
	{
		Kind:    mlspec.LexKindName(tokenKindRBrace),
		Pattern: mlspec.LexPattern(`[}]`),
	},
}

var (
	treeLexSpecOnce sync.Once
	treeLexSpec     *mlspec.CompiledLexSpec
	treeLexSpecErr  error
)

func compiledTreeLexSpec() (*mlspec.CompiledLexSpec, error) {
	treeLexSpecOnce.Do(func() {
		clspec, err, cErrs := mlcompiler.Compile(&mlspec.LexSpec{
			Name: "tree",
			Entries: treeLexEntries,
		}, mlcompiler.CompressionLevel(mlcompiler.CompressionLevelMax))
		if err != nil {
			if len(cErrs) > 0 {
				treeLexSpecErr = fmt.Errorf("failed to compile the tree lexer: %v: %v", cErrs[0].Kind, cErrs[0].Cause)
				return
			}
			treeLexSpecErr = err
			return
		}
		treeLexSpec = clspec
	})
	return treeLexSpec, treeLexSpecErr
}

type treeLexer struct {
	d     *mldriver.Lexer
	kinds []tokenKind
}

func newTreeLexer(src string) (*treeLexer, error) {
	clspec, err := compiledTreeLexSpec()
	if err != nil {
		return nil, err
	}
	d, err := mldriver.NewLexer(mldriver.NewLexSpec(clspec), strings.NewReader(src))
	if err != nil {
		return nil, err
	}
	kinds := make([]tokenKind, len(clspec.KindNames))
	for i, k := range clspec.KindNames {
		kinds[i] = tokenKind(k.String())
	}
	return &treeLexer{
		d:     d,
		kinds: kinds,
	}, nil
}

func (l *treeLexer) next() (*token, error) {
	for {
		tok, err := l.d.Next()
		if err != nil {
			return nil, err
		}
		pos := Position{
			Row: tok.Row + 1,
			Col: tok.Col + 1,
		}
		if tok.EOF {
			return &token{kind: tokenKindEOF, pos: pos}, nil
		}
		if tok.Invalid {
			return &token{kind: tokenKindInvalid, text: string(tok.Lexeme), pos: pos}, nil
		}
		kind := l.kinds[tok.KindID]
		if kind == "white_space" {
			continue
		}
		text := string(tok.Lexeme)
		if kind == tokenKindLiteral {
			text = unquote(text)
		}
		return &token{kind: kind, text: text, pos: pos}, nil
	}
}

// unquote removes the quotes of a literal and its escaping backslashes.
func unquote(lit string) string {
	lit = lit[1 : len(lit)-1]
	var b strings.Builder
	escaped := false
	for _, c := range lit {
		if c == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(c)
	}
	return b.String()
}
