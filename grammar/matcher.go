package grammar

import (
	"errors"
	"fmt"
	"io"
	"strings"

	mlcompiler "github.com/nihei9/maleeni/compiler"
	mldriver "github.com/nihei9/maleeni/driver"
	mlspec "github.com/nihei9/maleeni/spec"
)

const patternKindName = "pattern"

// patternMatcher matches one pattern terminal using a lexer that knows only that pattern.
// The lexer always takes the longest match.
type patternMatcher struct {
	spec   *mlspec.CompiledLexSpec
	kindID int
}

func newPatternMatcher(pattern string) (*patternMatcher, error) {
	lexSpec := &mlspec.LexSpec{
		Name: patternKindName,
		Entries: []*mlspec.LexEntry{
			{
				Kind:    mlspec.LexKindName(patternKindName),
				Pattern: mlspec.LexPattern(pattern),
			},
		},
	}
	clspec, err, cErrs := mlcompiler.Compile(lexSpec, mlcompiler.CompressionLevel(mlcompiler.CompressionLevelMax))
	if err != nil {
		if len(cErrs) > 0 {
			var b strings.Builder
			writeCompileError(&b, cErrs[0])
			for _, cerr := range cErrs[1:] {
				fmt.Fprintf(&b, "\n")
				writeCompileError(&b, cerr)
			}
			return nil, errors.New(b.String())
		}
		return nil, err
	}

	kindID := -1
	for i, k := range clspec.KindNames {
		if k.String() == patternKindName {
			kindID = i
			break
		}
	}
	if kindID < 0 {
		return nil, fmt.Errorf("a lexical kind was not found in a compiled pattern; pattern: %v", pattern)
	}

	return &patternMatcher{
		spec:   clspec,
		kindID: kindID,
	}, nil
}

func (m *patternMatcher) match(input string, pos int) (int, bool) {
	lex, err := mldriver.NewLexer(mldriver.NewLexSpec(m.spec), strings.NewReader(input[pos:]))
	if err != nil {
		return 0, false
	}
	tok, err := lex.Next()
	if err != nil {
		return 0, false
	}
	if tok.EOF || tok.Invalid || int(tok.KindID) != m.kindID {
		return 0, false
	}
	return len(tok.Lexeme), true
}

func writeCompileError(w io.Writer, cErr *mlcompiler.CompileError) {
	if cErr.Fragment {
		fmt.Fprintf(w, "fragment ")
	}
	fmt.Fprintf(w, "%v: %v", cErr.Kind, cErr.Cause)
	if cErr.Detail != "" {
		fmt.Fprintf(w, ": %v", cErr.Detail)
	}
}
