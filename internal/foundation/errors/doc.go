// Package errors provides the classified error primitives used across statique.
//
// Every error that crosses a package boundary is a ClassifiedError carrying a
// category (what failed), a severity (how bad it is), and free-form context.
// The CLI adapter turns the category into a process exit code.
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryFileSystem, "copy failed").
//		Warning().
//		WithContext("path", rel).
//		WithCause(ioErr).
//		Build()
package errors
