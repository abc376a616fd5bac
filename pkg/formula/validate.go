package formula

import (
	"errors"
	"fmt"
	"strings"
)

// Validation is the outcome of [Validate]. Kind and Error are empty when Valid.
type Validation struct {
	Valid bool
	Kind  ErrorKind
	Error string
	Pos   int
}

// ValidateOptions configures [Validate].
type ValidateOptions struct {
	// KnownFields enables the unknown_field check when non-nil.
	KnownFields map[string]bool
}

// ValidateOption mutates ValidateOptions.
type ValidateOption func(*ValidateOptions)

// WithKnownFields reports references to names outside names as
// unknown_field. Without it, references are not checked.
func WithKnownFields(names ...string) ValidateOption {
	return func(opts *ValidateOptions) {
		if opts.KnownFields == nil {
			opts.KnownFields = make(map[string]bool, len(names))
		}

		for _, n := range names {
			opts.KnownFields[n] = true
		}
	}
}

// Validate checks syntax, function names, argument counts and (optionally)
// field references without evaluating anything. A formula that is well formed
// but would fail at runtime on some task is valid.
func Validate(source string, opts ...ValidateOption) Validation {
	var options ValidateOptions
	for _, opt := range opts {
		opt(&options)
	}

	root, err := parse(source)
	if err != nil {
		var se *SyntaxError
		if errors.As(err, &se) {
			return Validation{Kind: se.Kind, Error: se.Error(), Pos: se.Pos}
		}

		return Validation{Kind: KindSyntax, Error: err.Error()}
	}

	var problem *Validation

	walk(root, func(n node) {
		if problem != nil {
			return
		}

		switch n := n.(type) {
		case *call:
			fn, ok := builtins[n.name]
			if !ok {
				problem = &Validation{
					Kind:  KindUnknownFunction,
					Error: fmt.Sprintf("unknown function %s at position %d", n.name, n.pos+1),
					Pos:   n.pos,
				}

				return
			}

			if err := fn.checkArity(len(n.args)); err != nil {
				problem = &Validation{
					Kind:  KindArity,
					Error: fmt.Sprintf("%s at position %d", err, n.pos+1),
					Pos:   n.pos,
				}
			}
		case *fieldRef:
			if options.KnownFields != nil && !options.KnownFields[n.name] {
				problem = &Validation{
					Kind:  KindUnknownField,
					Error: fmt.Sprintf("unknown field %s at position %d", quote(n.name), n.pos+1),
					Pos:   n.pos,
				}
			}
		}
	})

	if problem != nil {
		return *problem
	}

	return Validation{Valid: true}
}

// ExtractFieldRefs returns the custom-field names source references, in order
// of first appearance and without duplicates. Both {{name}} and
// field("name") forms count.
//
// For source that does not parse, the references readable from the token
// stream are returned, so dependency tracking still works while a formula is
// being edited.
func ExtractFieldRefs(source string) []string {
	root, err := parse(source)
	if err == nil {
		return refsOf(root)
	}

	return refsFromTokens(source)
}

func refsOf(root node) []string {
	var refs []string

	seen := map[string]bool{}

	walk(root, func(n node) {
		if ref, ok := n.(*fieldRef); ok && !seen[ref.name] {
			seen[ref.name] = true
			refs = append(refs, ref.name)
		}
	})

	return refs
}

func refsFromTokens(source string) []string {
	toks, _ := tokenize(source)

	var refs []string

	seen := map[string]bool{}
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name != "" && !seen[name] {
			seen[name] = true
			refs = append(refs, name)
		}
	}

	for i, tok := range toks {
		switch tok.kind {
		case tokFieldRef:
			add(tok.text)
		case tokIdent:
			lower := strings.ToLower(tok.text)
			if (lower == "field" || lower == "prop") && i+3 < len(toks) &&
				toks[i+1].kind == tokLParen && toks[i+2].kind == tokString && toks[i+3].kind == tokRParen {
				add(toks[i+2].text)
			}
		}
	}

	return refs
}
