// Error/ErrorList/PrintError are aliased straight onto the standard
// library's go/scanner package, exactly as the teacher does it: a position
// plus a message, accumulated and sortable, with no reason to reimplement
// any of it by hand.
package scanner

import "go/scanner"

type (
	Error     = scanner.Error
	ErrorList = scanner.ErrorList
)

var PrintError = scanner.PrintError
