package errors

// Error codes for the minicc compiler. The codes appear in error messages so
// failures can be identified consistently across the toolchain.
//
// Error code ranges:
// E0001-E0099: Semantic analysis errors
// E0100-E0199: Parser errors

const (
	// E0001: Use of a variable that was never declared
	ErrorUndefinedVariable = "E0001"

	// E0002: Variable declared twice within the same scope
	ErrorDuplicateDeclaration = "E0002"

	// E0003: Call to a function other than read or print
	ErrorUndefinedFunction = "E0003"

	// E0004: Wrong number of arguments to read or print
	ErrorInvalidArguments = "E0004"

	// E0005: Extern with a name other than read or print
	ErrorInvalidExtern = "E0005"

	// E0100: Syntax errors reported by the parser
	ErrorSyntax = "E0100"
)
