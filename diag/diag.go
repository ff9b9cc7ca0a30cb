// Package diag implements the compiler's fatal-error contract
// (spec.md §7): a fixed two-line message to stderr and a non-zero
// exit, plus a separate verbose trace logger used by the pipeline
// stages when -v is given. The two are deliberately not the same
// mechanism — fatal errors are part of the external contract the
// end-to-end scenarios in spec.md §8 check byte-for-byte, while trace
// logging is a debugging aid with no stability promise.
package diag

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Error is a located, fatal compiler error. Every semantic error the
// translator, hoister, prototype resolver, or declaration table
// produces is one of these so the driver can render it with cc1.c's
// exact "on FILE:LINE:COL\ncdie: MESSAGE\n" shape (spec.md §7).
type Error struct {
	File    string
	Line    int
	Col     int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("on %s:%d:%d\ncdie: %s\n", e.File, e.Line, e.Col, e.Message)
}

// At constructs a located fatal error, the translator/hoister/decl
// equivalent of cc1.c's cdie — building the Error here rather than at
// the point of printing means a caller several stack frames up (e.g.
// the driver compiling the next function) can recover and add context
// without the message text changing.
func At(file string, line, col int, format string, args ...any) error {
	return &Error{File: file, Line: line, Col: col, Message: fmt.Sprintf(format, args...)}
}

// Die renders err to stderr and exits 1, matching cc1.c's cdie/die
// for any fatal condition: a *Error prints with file:line:col context,
// anything else (I/O errors, missing -o, missing _start) prints as a
// bare cdie with no location, since cc1.c's own die() (used for
// argument-parsing and I/O failures rather than cdie()) has none
// either.
func Die(err error) {
	if le, ok := err.(*Error); ok {
		fmt.Fprint(os.Stderr, le.Error())
	} else {
		fmt.Fprintf(os.Stderr, "cdie: %v\n", err)
	}
	os.Exit(1)
}

// NewLogger returns a development logger when verbose is set and a
// no-op logger otherwise, so call sites can log unconditionally
// (translate and decl both take a *zap.Logger) without an `if
// verbose` guard at every call site.
func NewLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		// zap.NewDevelopment only fails constructing its own sink;
		// falling back to Nop keeps -v best-effort rather than fatal.
		return zap.NewNop()
	}
	return l
}
