package grammar

type SemanticError struct {
	message string
}

func newSemanticError(message string) *SemanticError {
	return &SemanticError{
		message: message,
	}
}

func (e *SemanticError) Error() string {
	return e.message
}

var (
	semErrNoRule              = newSemanticError("a rule set needs at least one rule")
	semErrUndefinedRule       = newSemanticError("undefined rule")
	semErrDuplicateRule       = newSemanticError("duplicate rule")
	semErrReservedTag         = newSemanticError("a tag must not be empty nor start with '<' or '§'")
	semErrEmptyLiteral        = newSemanticError("a literal must not be empty")
	semErrInvalidPattern      = newSemanticError("invalid pattern")
	semErrNoItems             = newSemanticError("a non-terminal needs at least one item")
	semErrEmptyAlternative    = newSemanticError("an alternative of a choice needs at least one item")
	semErrInvalidCardinality  = newSemanticError("invalid cardinality")
	semErrNoEmbeddedRuleSet   = newSemanticError("an embedded rule needs a rule set")
	semErrUndefinedEmbedded   = newSemanticError("undefined start rule of an embedded rule set")
	semErrEmbeddedNotTerminal = newSemanticError("an embedded start rule must be a terminal or a non-terminal")
)
