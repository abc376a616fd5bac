package formula

import "github.com/jamsmac/MYDON-sub006/pkg/fields"

// node is a parsed expression. Evaluation switches on the concrete type.
type node interface {
	position() int
}

type literal struct {
	pos   int
	value fields.Value
}

// fieldRef reads ctx.Fields[name]. Both {{name}} and field("name") parse to it.
type fieldRef struct {
	pos  int
	name string
}

// attrRef reads a built-in task attribute.
type attrRef struct {
	pos  int
	name string // lower-case attribute name
}

type unary struct {
	pos int
	op  tokenKind // tokMinus or tokBang
	x   node
}

type binary struct {
	pos  int
	op   tokenKind
	l, r node
}

type call struct {
	pos  int
	name string // upper-case function name
	args []node
}

func (n *literal) position() int  { return n.pos }
func (n *fieldRef) position() int { return n.pos }
func (n *attrRef) position() int  { return n.pos }
func (n *unary) position() int    { return n.pos }
func (n *binary) position() int   { return n.pos }
func (n *call) position() int     { return n.pos }

// walk visits n and its children depth-first, left to right.
func walk(n node, visit func(node)) {
	visit(n)

	switch n := n.(type) {
	case *unary:
		walk(n.x, visit)
	case *binary:
		walk(n.l, visit)
		walk(n.r, visit)
	case *call:
		for _, a := range n.args {
			walk(a, visit)
		}
	}
}
