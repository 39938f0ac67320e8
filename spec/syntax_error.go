package spec

import "fmt"

type SyntaxError struct {
	message string
}

func newSyntaxError(message string) *SyntaxError {
	return &SyntaxError{
		message: message,
	}
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error: %s", e.message)
}

var (
	synErrInvalidJSON     = newSyntaxError("invalid JSON")
	synErrNotObject       = newSyntaxError("a declaration must be a JSON object")
	synErrRulesNotArray   = newSyntaxError("rules must be an array")
	synErrUnknownKey      = newSyntaxError("unknown key")
	synErrNoRules         = newSyntaxError("a declaration must have at least one rule")
	synErrNoTag           = newSyntaxError("a rule needs a tag")
	synErrUnknownKind     = newSyntaxError("unknown rule kind")
	synErrUnknownChoice   = newSyntaxError("unknown choice kind")
	synErrUnexpectedField = newSyntaxError("the field is not used by the rule kind")
	synErrEmptyItem       = newSyntaxError("an item must not be empty")
	synErrNoRuleSet       = newSyntaxError("an embedded rule needs a rule set and a start rule")
)
