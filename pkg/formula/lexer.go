package formula

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokFieldRef // {{name}}
	tokLParen
	tokRParen
	tokComma
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPercent
	tokAmp
	tokEq
	tokNotEq
	tokLess
	tokLessEq
	tokGreater
	tokGreaterEq
	tokAndAnd
	tokOrOr
	tokBang
)

var tokenNames = map[tokenKind]string{
	tokEOF:       "end of formula",
	tokNumber:    "number",
	tokString:    "string",
	tokIdent:     "identifier",
	tokFieldRef:  "field reference",
	tokLParen:    "'('",
	tokRParen:    "')'",
	tokComma:     "','",
	tokPlus:      "'+'",
	tokMinus:     "'-'",
	tokStar:      "'*'",
	tokSlash:     "'/'",
	tokPercent:   "'%'",
	tokAmp:       "'&'",
	tokEq:        "'='",
	tokNotEq:     "'!='",
	tokLess:      "'<'",
	tokLessEq:    "'<='",
	tokGreater:   "'>'",
	tokGreaterEq: "'>='",
	tokAndAnd:    "'&&'",
	tokOrOr:      "'||'",
	tokBang:      "'!'",
}

func (k tokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}

	return "token"
}

var singleCharTokens = map[byte]tokenKind{
	'(': tokLParen,
	')': tokRParen,
	',': tokComma,
	'+': tokPlus,
	'-': tokMinus,
	'*': tokStar,
	'/': tokSlash,
	'%': tokPercent,
	'&': tokAmp,
	'=': tokEq,
	'<': tokLess,
	'>': tokGreater,
	'!': tokBang,
}

type token struct {
	kind tokenKind
	text string // identifier name, decoded string, field name or number literal
	pos  int    // byte offset into the source
}

// lexer turns formula source into tokens. It never panics; the first
// malformed construct stops scanning and is returned as a *SyntaxError
// together with the tokens read so far.
type lexer struct {
	src string
	pos int
}

func tokenize(src string) ([]token, error) {
	lx := lexer{src: src}
	toks := make([]token, 0, 16)

	for {
		tok, err := lx.next()
		if err != nil {
			return toks, err
		}

		toks = append(toks, tok)

		if tok.kind == tokEOF {
			return toks, nil
		}
	}
}

func (lx *lexer) next() (token, error) {
	lx.skipSpace()

	if lx.pos >= len(lx.src) {
		return token{kind: tokEOF, pos: lx.pos}, nil
	}

	start := lx.pos
	c := lx.src[lx.pos]

	switch {
	case c == '{':
		return lx.fieldRef()
	case c == '}':
		return token{}, syntaxErrorf(KindUnbalanced, start, "unexpected '}' without matching '{{'")
	case c == '"' || c == '\'':
		return lx.str(c)
	case isDigit(c) || (c == '.' && lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1])):
		return lx.number(), nil
	case c == '_' || isLetterAt(lx.src, lx.pos):
		return lx.ident(), nil
	}

	two := ""
	if lx.pos+1 < len(lx.src) {
		two = lx.src[lx.pos : lx.pos+2]
	}

	switch two {
	case "==":
		lx.pos += 2
		return token{kind: tokEq, pos: start}, nil
	case "!=", "<>":
		lx.pos += 2
		return token{kind: tokNotEq, pos: start}, nil
	case "<=":
		lx.pos += 2
		return token{kind: tokLessEq, pos: start}, nil
	case ">=":
		lx.pos += 2
		return token{kind: tokGreaterEq, pos: start}, nil
	case "&&":
		lx.pos += 2
		return token{kind: tokAndAnd, pos: start}, nil
	case "||":
		lx.pos += 2
		return token{kind: tokOrOr, pos: start}, nil
	}

	if kind, ok := singleCharTokens[c]; ok {
		lx.pos++
		return token{kind: kind, pos: start}, nil
	}

	r, _ := utf8.DecodeRuneInString(lx.src[lx.pos:])

	return token{}, syntaxErrorf(KindSyntax, start, "unexpected character %q", r)
}

func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.src) {
		r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		if !unicode.IsSpace(r) {
			return
		}

		lx.pos += size
	}
}

// fieldRef scans the legacy template form {{ name }}. The name is everything
// between the braces with surrounding whitespace removed.
func (lx *lexer) fieldRef() (token, error) {
	start := lx.pos
	if !strings.HasPrefix(lx.src[lx.pos:], "{{") {
		return token{}, syntaxErrorf(KindSyntax, start, "unexpected '{' (field references are written {{name}})")
	}

	end := strings.Index(lx.src[start+2:], "}}")
	if end < 0 {
		return token{}, syntaxErrorf(KindUnbalanced, start, "unterminated field reference: missing '}}'")
	}

	name := strings.TrimSpace(lx.src[start+2 : start+2+end])
	if name == "" {
		return token{}, syntaxErrorf(KindSyntax, start, "empty field reference")
	}

	if strings.Contains(name, "{{") {
		return token{}, syntaxErrorf(KindUnbalanced, start, "nested '{{' in field reference")
	}

	lx.pos = start + 2 + end + 2

	return token{kind: tokFieldRef, text: name, pos: start}, nil
}

func (lx *lexer) str(quote byte) (token, error) {
	start := lx.pos
	lx.pos++

	var b strings.Builder

	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]

		switch c {
		case quote:
			lx.pos++
			return token{kind: tokString, text: b.String(), pos: start}, nil
		case '\\':
			if lx.pos+1 >= len(lx.src) {
				return token{}, syntaxErrorf(KindUnbalanced, start, "unterminated string")
			}

			lx.pos++
			esc := lx.src[lx.pos]

			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(esc)
			}

			lx.pos++
		default:
			b.WriteByte(c)
			lx.pos++
		}
	}

	return token{}, syntaxErrorf(KindUnbalanced, start, "unterminated string")
}

func (lx *lexer) number() token {
	start := lx.pos
	seenDot := false

	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if c == '.' && !seenDot {
			seenDot = true
			lx.pos++

			continue
		}

		if !isDigit(c) {
			break
		}

		lx.pos++
	}

	// Exponent, only when digits follow.
	if lx.pos < len(lx.src) && (lx.src[lx.pos] == 'e' || lx.src[lx.pos] == 'E') {
		p := lx.pos + 1
		if p < len(lx.src) && (lx.src[p] == '+' || lx.src[p] == '-') {
			p++
		}

		if p < len(lx.src) && isDigit(lx.src[p]) {
			for p < len(lx.src) && isDigit(lx.src[p]) {
				p++
			}

			lx.pos = p
		}
	}

	return token{kind: tokNumber, text: lx.src[start:lx.pos], pos: start}
}

func (lx *lexer) ident() token {
	start := lx.pos

	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if c == '_' || isDigit(c) {
			lx.pos++
			continue
		}

		if !isLetterAt(lx.src, lx.pos) {
			break
		}

		_, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		lx.pos += size
	}

	return token{kind: tokIdent, text: lx.src[start:lx.pos], pos: start}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isLetterAt(s string, i int) bool {
	r, _ := utf8.DecodeRuneInString(s[i:])

	return unicode.IsLetter(r)
}
