package formula

import (
	"strconv"
	"strings"

	"github.com/jamsmac/MYDON-sub006/pkg/fields"
)

// maxDepth bounds expression nesting so hostile input cannot exhaust the stack.
const maxDepth = 128

// Built-in task attributes addressable as bare identifiers.
const (
	AttrStatus      = "status"
	AttrPriority    = "priority"
	AttrDeadline    = "deadline"
	AttrProgress    = "progress"
	AttrTitle       = "title"
	AttrDescription = "description"
)

var attributes = map[string]bool{
	AttrStatus:      true,
	AttrPriority:    true,
	AttrDeadline:    true,
	AttrProgress:    true,
	AttrTitle:       true,
	AttrDescription: true,
}

// parse builds the AST for src.
func parse(src string) (node, error) {
	if strings.TrimSpace(src) == "" {
		return nil, syntaxErrorf(KindSyntax, 0, "formula is empty")
	}

	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}

	p := parser{toks: toks}

	root, err := p.expr()
	if err != nil {
		return nil, err
	}

	tok := p.peek()
	if tok.kind == tokRParen {
		return nil, syntaxErrorf(KindUnbalanced, tok.pos, "unexpected ')' without matching '('")
	}

	if tok.kind != tokEOF {
		return nil, syntaxErrorf(KindSyntax, tok.pos, "unexpected %s after expression", describe(tok))
	}

	return root, nil
}

// parser is a recursive-descent parser over a token slice. Each precedence
// level has its own method, from lowest (or) to highest (primary).
type parser struct {
	toks  []token
	pos   int
	depth int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) advance() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}

	return tok
}

// keyword reports whether the current token is the identifier kw (any case)
// and is not the start of a call like AND(...).
func (p *parser) keyword(kw string) bool {
	tok := p.peek()
	if tok.kind != tokIdent || !strings.EqualFold(tok.text, kw) {
		return false
	}

	return p.toks[p.pos+1].kind != tokLParen
}

// infix reports whether the current token is the identifier kw in operator
// position. After a complete operand "AND (" can only be the operator.
func (p *parser) infix(kw string) bool {
	tok := p.peek()
	return tok.kind == tokIdent && strings.EqualFold(tok.text, kw)
}

func (p *parser) enter(pos int) error {
	p.depth++
	if p.depth > maxDepth {
		return syntaxErrorf(KindSyntax, pos, "expression nested too deeply")
	}

	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) expr() (node, error) {
	if err := p.enter(p.peek().pos); err != nil {
		return nil, err
	}
	defer p.leave()

	return p.or()
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}

	for p.peek().kind == tokOrOr || p.infix("or") {
		tok := p.advance()

		right, err := p.and()
		if err != nil {
			return nil, err
		}

		left = &binary{pos: tok.pos, op: tokOrOr, l: left, r: right}
	}

	return left, nil
}

func (p *parser) and() (node, error) {
	left, err := p.comparison()
	if err != nil {
		return nil, err
	}

	for p.peek().kind == tokAndAnd || p.infix("and") {
		tok := p.advance()

		right, err := p.comparison()
		if err != nil {
			return nil, err
		}

		left = &binary{pos: tok.pos, op: tokAndAnd, l: left, r: right}
	}

	return left, nil
}

func isComparison(k tokenKind) bool {
	switch k {
	case tokEq, tokNotEq, tokLess, tokLessEq, tokGreater, tokGreaterEq:
		return true
	default:
		return false
	}
}

func (p *parser) comparison() (node, error) {
	left, err := p.concat()
	if err != nil {
		return nil, err
	}

	if !isComparison(p.peek().kind) {
		return left, nil
	}

	tok := p.advance()

	right, err := p.concat()
	if err != nil {
		return nil, err
	}

	if next := p.peek(); isComparison(next.kind) {
		return nil, syntaxErrorf(KindSyntax, next.pos, "comparisons cannot be chained; use AND")
	}

	return &binary{pos: tok.pos, op: tok.kind, l: left, r: right}, nil
}

func (p *parser) concat() (node, error) {
	left, err := p.additive()
	if err != nil {
		return nil, err
	}

	for p.peek().kind == tokAmp {
		tok := p.advance()

		right, err := p.additive()
		if err != nil {
			return nil, err
		}

		left = &binary{pos: tok.pos, op: tokAmp, l: left, r: right}
	}

	return left, nil
}

func (p *parser) additive() (node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}

	for p.peek().kind == tokPlus || p.peek().kind == tokMinus {
		tok := p.advance()

		right, err := p.term()
		if err != nil {
			return nil, err
		}

		left = &binary{pos: tok.pos, op: tok.kind, l: left, r: right}
	}

	return left, nil
}

func (p *parser) term() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}

	for k := p.peek().kind; k == tokStar || k == tokSlash || k == tokPercent; k = p.peek().kind {
		tok := p.advance()

		right, err := p.unary()
		if err != nil {
			return nil, err
		}

		left = &binary{pos: tok.pos, op: tok.kind, l: left, r: right}
	}

	return left, nil
}

func (p *parser) unary() (node, error) {
	tok := p.peek()

	var op tokenKind

	switch {
	case tok.kind == tokMinus:
		op = tokMinus
	case tok.kind == tokPlus:
		p.advance()
		return p.unary()
	case tok.kind == tokBang, p.keyword("not"):
		op = tokBang
	default:
		return p.primary()
	}

	p.advance()

	if err := p.enter(tok.pos); err != nil {
		return nil, err
	}
	defer p.leave()

	x, err := p.unary()
	if err != nil {
		return nil, err
	}

	return &unary{pos: tok.pos, op: op, x: x}, nil
}

func (p *parser) primary() (node, error) {
	tok := p.advance()

	switch tok.kind {
	case tokNumber:
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, syntaxErrorf(KindSyntax, tok.pos, "invalid number %q", tok.text)
		}

		return &literal{pos: tok.pos, value: fields.Number(f)}, nil
	case tokString:
		return &literal{pos: tok.pos, value: fields.Text(tok.text)}, nil
	case tokFieldRef:
		return &fieldRef{pos: tok.pos, name: tok.text}, nil
	case tokLParen:
		inner, err := p.expr()
		if err != nil {
			return nil, err
		}

		closing := p.advance()

		switch closing.kind {
		case tokRParen:
		case tokEOF:
			return nil, syntaxErrorf(KindUnbalanced, tok.pos, "missing ')' for '(' opened here")
		default:
			return nil, syntaxErrorf(KindSyntax, closing.pos, "expected ')', got %s", describe(closing))
		}

		return inner, nil
	case tokIdent:
		return p.identifier(tok)
	case tokRParen:
		return nil, syntaxErrorf(KindUnbalanced, tok.pos, "unexpected ')' without matching '('")
	case tokEOF:
		return nil, syntaxErrorf(KindSyntax, tok.pos, "unexpected end of formula")
	default:
		return nil, syntaxErrorf(KindSyntax, tok.pos, "unexpected %s", describe(tok))
	}
}

func (p *parser) identifier(tok token) (node, error) {
	lower := strings.ToLower(tok.text)

	if p.peek().kind == tokLParen {
		p.advance()

		args, err := p.arguments(tok)
		if err != nil {
			return nil, err
		}

		if lower == "field" || lower == "prop" {
			return fieldCall(tok, args)
		}

		return &call{pos: tok.pos, name: strings.ToUpper(tok.text), args: args}, nil
	}

	switch lower {
	case "true":
		return &literal{pos: tok.pos, value: fields.Bool(true)}, nil
	case "false":
		return &literal{pos: tok.pos, value: fields.Bool(false)}, nil
	case "null":
		return &literal{pos: tok.pos, value: fields.Null()}, nil
	}

	if attributes[lower] {
		return &attrRef{pos: tok.pos, name: lower}, nil
	}

	return nil, syntaxErrorf(KindSyntax, tok.pos,
		"unknown identifier %q (reference custom fields as {{%s}} or field(\"%s\"))", tok.text, tok.text, tok.text)
}

// arguments parses a call's argument list after the opening parenthesis.
func (p *parser) arguments(open token) ([]node, error) {
	var args []node

	if p.peek().kind == tokRParen {
		p.advance()
		return args, nil
	}

	for {
		arg, err := p.expr()
		if err != nil {
			return nil, err
		}

		args = append(args, arg)

		tok := p.advance()

		switch tok.kind {
		case tokComma:
			continue
		case tokRParen:
			return args, nil
		case tokEOF:
			return nil, syntaxErrorf(KindUnbalanced, open.pos, "missing ')' to close %s(", open.text)
		default:
			return nil, syntaxErrorf(KindSyntax, tok.pos, "expected ',' or ')' in %s(...), got %s", open.text, describe(tok))
		}
	}
}

func fieldCall(tok token, args []node) (node, error) {
	if len(args) != 1 {
		return nil, syntaxErrorf(KindSyntax, tok.pos, "%s() takes exactly one field name", tok.text)
	}

	lit, ok := args[0].(*literal)
	if !ok {
		return nil, syntaxErrorf(KindSyntax, tok.pos, "%s() needs a quoted field name", tok.text)
	}

	name, ok := lit.value.Str()
	name = strings.TrimSpace(name)

	if !ok || name == "" {
		return nil, syntaxErrorf(KindSyntax, tok.pos, "%s() needs a quoted field name", tok.text)
	}

	return &fieldRef{pos: tok.pos, name: name}, nil
}

func describe(tok token) string {
	switch tok.kind {
	case tokIdent:
		return "identifier " + strconv.Quote(tok.text)
	case tokNumber:
		return "number " + tok.text
	case tokString:
		return "string " + strconv.Quote(tok.text)
	case tokFieldRef:
		return "field reference {{" + tok.text + "}}"
	default:
		return tok.kind.String()
	}
}
