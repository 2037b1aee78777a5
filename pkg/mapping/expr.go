package mapping

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fieldmap/fieldmap/pkg/errors"
)

// The derived-mapping expression language is deliberately small: bracketed
// column references, numeric literals, + - * /, and parentheses. Expressions
// only ever resolve named columns from the current row; there is no function
// call syntax and no host-language execution.

// ColumnRef renders a column name as an expression column reference.
func ColumnRef(column string) string {
	return "[" + column + "]"
}

// Expr is a parsed arithmetic expression.
type Expr struct {
	root exprNode
	text string
}

// ParseExpr parses an expression, failing with a ValidationError on syntax
// errors.
func ParseExpr(expression string) (*Expr, error) {
	p := &exprParser{input: expression}
	node, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, errors.NewValidationError("expression", expression,
			fmt.Sprintf("unexpected %q at offset %d", p.input[p.pos], p.pos))
	}
	return &Expr{root: node, text: expression}, nil
}

// String returns the original expression text.
func (e *Expr) String() string { return e.text }

// Columns returns the distinct column names the expression references, in
// first-reference order.
func (e *Expr) Columns() []string {
	seen := make(map[string]bool)
	var out []string
	e.root.collect(func(col string) {
		if !seen[col] {
			seen[col] = true
			out = append(out, col)
		}
	})
	return out
}

// Eval evaluates the expression against one row of numeric values keyed by
// column name. A reference to a column missing from the row is an error.
func (e *Expr) Eval(row map[string]float64) (float64, error) {
	return e.root.eval(row)
}

// EvalExpr parses and evaluates in one step.
func EvalExpr(expression string, row map[string]float64) (float64, error) {
	e, err := ParseExpr(expression)
	if err != nil {
		return 0, err
	}
	return e.Eval(row)
}

// ExpressionColumns parses the expression and returns the columns it
// references.
func ExpressionColumns(expression string) ([]string, error) {
	e, err := ParseExpr(expression)
	if err != nil {
		return nil, err
	}
	return e.Columns(), nil
}

type exprNode interface {
	eval(row map[string]float64) (float64, error)
	collect(fn func(column string))
}

type numberNode float64

func (n numberNode) eval(map[string]float64) (float64, error) { return float64(n), nil }
func (n numberNode) collect(func(string))                     {}

type columnNode string

func (n columnNode) eval(row map[string]float64) (float64, error) {
	v, ok := row[string(n)]
	if !ok {
		return 0, errors.NewNotFoundError("column", string(n))
	}
	return v, nil
}
func (n columnNode) collect(fn func(string)) { fn(string(n)) }

type binaryNode struct {
	op          byte
	left, right exprNode
}

func (n *binaryNode) eval(row map[string]float64) (float64, error) {
	l, err := n.left.eval(row)
	if err != nil {
		return 0, err
	}
	r, err := n.right.eval(row)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	default:
		if r == 0 {
			return 0, errors.New("division by zero")
		}
		return l / r, nil
	}
}

func (n *binaryNode) collect(fn func(string)) {
	n.left.collect(fn)
	n.right.collect(fn)
}

type negateNode struct{ inner exprNode }

func (n *negateNode) eval(row map[string]float64) (float64, error) {
	v, err := n.inner.eval(row)
	return -v, err
}
func (n *negateNode) collect(fn func(string)) { n.inner.collect(fn) }

// exprParser is a recursive-descent parser over the expression grammar:
//
//	sum    = term  (('+' | '-') term)*
//	term   = factor (('*' | '/') factor)*
//	factor = number | '[' column ']' | '(' sum ')' | '-' factor
type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) parseSum() (exprNode, error) {
	node, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return node, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		node = &binaryNode{op: op, left: node, right: right}
	}
}

func (p *exprParser) parseTerm() (exprNode, error) {
	node, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' {
			return node, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		node = &binaryNode{op: op, left: node, right: right}
	}
}

func (p *exprParser) parseFactor() (exprNode, error) {
	switch c := p.peek(); {
	case c == '-':
		p.pos++
		inner, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &negateNode{inner: inner}, nil

	case c == '(':
		p.pos++
		node, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if p.peek() != ')' {
			return nil, errors.NewValidationError("expression", p.input, "missing closing parenthesis")
		}
		p.pos++
		return node, nil

	case c == '[':
		p.pos++
		end := strings.IndexByte(p.input[p.pos:], ']')
		if end < 0 {
			return nil, errors.NewValidationError("expression", p.input, "missing closing bracket in column reference")
		}
		column := p.input[p.pos : p.pos+end]
		p.pos += end + 1
		if column == "" {
			return nil, errors.NewValidationError("expression", p.input, "empty column reference")
		}
		return columnNode(column), nil

	case c >= '0' && c <= '9' || c == '.':
		start := p.pos
		for p.pos < len(p.input) {
			ch := p.input[p.pos]
			if (ch < '0' || ch > '9') && ch != '.' {
				break
			}
			p.pos++
		}
		v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
		if err != nil {
			return nil, errors.NewValidationError("expression", p.input,
				fmt.Sprintf("invalid number %q", p.input[start:p.pos]))
		}
		return numberNode(v), nil

	case c == 0:
		return nil, errors.NewValidationError("expression", p.input, "unexpected end of expression")

	default:
		return nil, errors.NewValidationError("expression", p.input,
			fmt.Sprintf("unexpected %q at offset %d", c, p.pos))
	}
}
