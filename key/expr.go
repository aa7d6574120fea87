package key

import (
	"fmt"
	"strings"

	"github.com/wasmflow/substate/errors"
)

// Expr is a parsed key-matching expression. Terms match when any candidate
// key equals the term, "||" is disjunction, "&&" and plain juxtaposition are
// conjunction, parentheses group. Terms may be bare words or quoted with
// single or double quotes.
type Expr struct {
	root exprNode
}

// ParseExpression parses input into a reusable expression.
func ParseExpression(input string) (*Expr, error) {
	p := &exprParser{input: input}
	root, err := p.parseOr()
	if err != nil {
		return nil, errors.ParseFailed("expression", err)
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return nil, errors.ParseFailed("expression",
			fmt.Errorf("unexpected %q at offset %d", p.input[p.pos], p.pos))
	}
	return &Expr{root: root}, nil
}

// MatchesKeys reports whether the expression holds for the given keys.
func (e *Expr) MatchesKeys(keys []string) bool {
	return e.root.eval(keys)
}

// MatchesKeysInExpr parses input and evaluates it against keys in one step.
func MatchesKeysInExpr(keys []string, input string) (bool, error) {
	expr, err := ParseExpression(input)
	if err != nil {
		return false, err
	}
	return expr.MatchesKeys(keys), nil
}

type exprNode interface {
	eval(keys []string) bool
}

type termNode string

func (t termNode) eval(keys []string) bool {
	for _, k := range keys {
		if k == string(t) {
			return true
		}
	}
	return false
}

type andNode []exprNode

func (n andNode) eval(keys []string) bool {
	for _, child := range n {
		if !child.eval(keys) {
			return false
		}
	}
	return true
}

type orNode []exprNode

func (n orNode) eval(keys []string) bool {
	for _, child := range n {
		if child.eval(keys) {
			return true
		}
	}
	return false
}

type exprParser struct {
	input string
	pos   int
}

// parseOr handles the lowest precedence level: and-groups joined by "||".
func (p *exprParser) parseOr() (exprNode, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []exprNode{first}
	for p.consumeOperator("||") {
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return first, nil
	}
	return orNode(children), nil
}

// parseAnd handles values joined by "&&" or by plain adjacency.
func (p *exprParser) parseAnd() (exprNode, error) {
	first, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	children := []exprNode{first}
	for {
		explicit := p.consumeOperator("&&")
		if !explicit && !p.startsValue() {
			break
		}
		next, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return first, nil
	}
	return andNode(children), nil
}

func (p *exprParser) parseValue() (exprNode, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("unexpected end of expression at offset %d", p.pos)
	}

	switch c := p.input[p.pos]; {
	case c == '(':
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return nil, fmt.Errorf("missing closing parenthesis at offset %d", p.pos)
		}
		p.pos++
		return inner, nil
	case c == '\'' || c == '"':
		return p.parseQuotedTerm(c)
	case isTermChar(c):
		return p.parseBareTerm(), nil
	default:
		return nil, fmt.Errorf("unexpected %q at offset %d", c, p.pos)
	}
}

func (p *exprParser) parseBareTerm() exprNode {
	start := p.pos
	for p.pos < len(p.input) && isTermChar(p.input[p.pos]) {
		p.pos++
	}
	return termNode(p.input[start:p.pos])
}

func (p *exprParser) parseQuotedTerm(quote byte) (exprNode, error) {
	p.pos++
	end := strings.IndexByte(p.input[p.pos:], quote)
	if end < 0 {
		return nil, fmt.Errorf("unterminated %c-quoted term at offset %d", quote, p.pos-1)
	}
	term := termNode(p.input[p.pos : p.pos+end])
	p.pos += end + 1
	return term, nil
}

// consumeOperator consumes op when it is next, after whitespace.
func (p *exprParser) consumeOperator(op string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.input[p.pos:], op) {
		p.pos += len(op)
		return true
	}
	return false
}

// startsValue reports whether the next non-space byte can begin a value.
func (p *exprParser) startsValue() bool {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return false
	}
	c := p.input[p.pos]
	return c == '(' || c == '\'' || c == '"' || isTermChar(c)
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t' || p.input[p.pos] == '\n' || p.input[p.pos] == '\r') {
		p.pos++
	}
}

func isTermChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_', c == '-', c == '.', c == ':':
		return true
	}
	return false
}
