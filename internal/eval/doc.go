// Package eval implements condition expression evaluation against an
// immutable scope of named values. It is the leaf component shared by the
// validation, condition and check engines: all of them hand expressions
// plus a scope to this package and get back a boolean, an EvalError, or
// ErrUnknown, and nothing here ever mutates the scope.
package eval
