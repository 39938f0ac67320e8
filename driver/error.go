package driver

import (
	"fmt"
	"strings"

	"github.com/beepsoft/net.akehurst.language/sppt"
)

// ParseFailedError reports an input the goal rule does not match. LongestMatch is the best partial
// tree found; it is never nil.
type ParseFailedError struct {
	Message           string
	Location          Location
	ExpectedTerminals []string
	LongestMatch      sppt.Node
}

func (e *ParseFailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v:%v: %v", e.Location.Line, e.Location.Column, e.Message)
	if len(e.ExpectedTerminals) > 0 {
		fmt.Fprintf(&b, "; expected: %v", strings.Join(e.ExpectedTerminals, ", "))
	}
	return b.String()
}

// InterruptedError reports a parse stopped by Parser.Interrupt, by its context or by its season
// limit. Cause is the error of the context when the context stopped it.
type InterruptedError struct {
	Message string
	Cause   error
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("parse interrupted: %v", e.Message)
}

func (e *InterruptedError) Unwrap() error {
	return e.Cause
}
