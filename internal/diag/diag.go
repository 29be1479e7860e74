// Package diag defines the compiler's error taxonomy and the diagnostics
// that every pipeline pass returns alongside its result.
//
// The shape follows the teacher's Panic type (interp.go): one error struct
// per failure domain, carrying enough context to be formatted against the
// original source without a second pass over the AST.
package diag

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/mkerian10/pluto/internal/ast"
)

// Kind classifies a Diagnostic per spec.md §7.
type Kind int

const (
	Syntax Kind = iota
	Type
	Codegen
	Link
	Manifest
	SiblingFile
)

func (k Kind) String() string {
	switch k {
	case Syntax:
		return "syntax"
	case Type:
		return "type"
	case Codegen:
		return "codegen"
	case Link:
		return "link"
	case Manifest:
		return "manifest"
	case SiblingFile:
		return "sibling-file"
	default:
		return "unknown"
	}
}

// Severity distinguishes a fatal diagnostic (aborts the pass) from a
// warning (collected non-fatally and reported alongside the final result).
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Diagnostic is one compiler-produced message with source context.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	Message  string
	Span     ast.Span

	// Wrapped holds the inner diagnostic for a SiblingFile error: an error
	// encountered while resolving an imported file, wrapping the inner
	// failure with the importer's context.
	Wrapped *Diagnostic
}

func (d *Diagnostic) Error() string {
	if d.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %s", d.Kind, d.Message, d.Wrapped.Error())
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// Unwrap lets errors.As/errors.Is see through a SiblingFile wrapper.
func (d *Diagnostic) Unwrap() error {
	if d.Wrapped == nil {
		return nil
	}
	return d.Wrapped
}

func New(kind Kind, span ast.Span, format string, args ...any) *Diagnostic {
	return &Diagnostic{Kind: kind, Severity: SeverityError, Message: fmt.Sprintf(format, args...), Span: span}
}

func Warnf(kind Kind, span ast.Span, format string, args ...any) *Diagnostic {
	return &Diagnostic{Kind: kind, Severity: SeverityWarning, Message: fmt.Sprintf(format, args...), Span: span}
}

// WrapSibling wraps an inner diagnostic produced while resolving importer's
// imported file, per spec.md's SiblingFile taxonomy entry.
func WrapSibling(importer string, span ast.Span, inner *Diagnostic) *Diagnostic {
	return &Diagnostic{
		Kind:    SiblingFile,
		Message: fmt.Sprintf("while resolving import in %s", importer),
		Span:    span,
		Wrapped: inner,
	}
}

// Bag accumulates non-fatal diagnostics across a pass. It is not itself an
// error; call AsError to turn accumulated entries into a single error via
// hashicorp/go-multierror for propagation-policy-compliant aggregation.
type Bag struct {
	Warnings []*Diagnostic
}

func (b *Bag) Add(d *Diagnostic) {
	if d == nil {
		return
	}
	b.Warnings = append(b.Warnings, d)
}

func (b *Bag) Empty() bool { return len(b.Warnings) == 0 }

// AsError folds every accumulated warning into one error via
// hashicorp/go-multierror, so a pipeline stage that collects non-fatal
// diagnostics across many functions (e.g. error-set inference, DI
// validation) can still report them through an ordinary Go error return
// at the end of the pass. Returns nil if the bag is empty.
func (b *Bag) AsError() error {
	if b.Empty() {
		return nil
	}
	var merr *multierror.Error
	for _, d := range b.Warnings {
		merr = multierror.Append(merr, d)
	}
	return merr.ErrorOrNil()
}
