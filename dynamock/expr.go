package dynamock

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// tokenKind classifies lexer tokens of DynamoDB expressions.
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokName   // #alias
	tokValue  // :alias
	tokNumber // list index
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
	tokDot
	tokCompare // = <> < <= > >=
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func lex(input string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(input); {
		c := rune(input[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(':
			tokens = append(tokens, token{tokLParen, "(", i})
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")", i})
			i++
		case c == '[':
			tokens = append(tokens, token{tokLBracket, "[", i})
			i++
		case c == ']':
			tokens = append(tokens, token{tokRBracket, "]", i})
			i++
		case c == ',':
			tokens = append(tokens, token{tokComma, ",", i})
			i++
		case c == '.':
			tokens = append(tokens, token{tokDot, ".", i})
			i++
		case c == '=':
			tokens = append(tokens, token{tokCompare, "=", i})
			i++
		case c == '<' || c == '>':
			op := string(c)
			if i+1 < len(input) && (input[i+1] == '=' || (c == '<' && input[i+1] == '>')) {
				op += string(input[i+1])
			}
			tokens = append(tokens, token{tokCompare, op, i})
			i += len(op)
		case c == '#' || c == ':':
			j := i + 1
			for j < len(input) && isIdentChar(rune(input[j])) {
				j++
			}
			if j == i+1 {
				return nil, fmt.Errorf("empty alias at position %d", i)
			}
			kind := tokName
			if c == ':' {
				kind = tokValue
			}
			tokens = append(tokens, token{kind, input[i:j], i})
			i = j
		case unicode.IsDigit(c):
			j := i
			for j < len(input) && unicode.IsDigit(rune(input[j])) {
				j++
			}
			tokens = append(tokens, token{tokNumber, input[i:j], i})
			i = j
		case isIdentChar(c):
			j := i
			for j < len(input) && isIdentChar(rune(input[j])) {
				j++
			}
			tokens = append(tokens, token{tokIdent, input[i:j], i})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", c, i)
		}
	}
	return append(tokens, token{kind: tokEOF, pos: len(input)}), nil
}

func isIdentChar(c rune) bool {
	return c == '_' || c == '-' || unicode.IsLetter(c) || unicode.IsDigit(c)
}

// pathElem is one step of a document path: a map member or a list index.
type pathElem struct {
	name  string
	index int
	list  bool
}

type docPath []pathElem

func (p docPath) String() string {
	var b strings.Builder
	for i, e := range p {
		if e.list {
			fmt.Fprintf(&b, "[%d]", e.index)
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(e.name)
	}
	return b.String()
}

// Expression AST. Conditions evaluate to bool, operands to attribute values.
type (
	condition interface{ isCondition() }
	operand   interface{ isOperand() }

	andCond     struct{ left, right condition }
	orCond      struct{ left, right condition }
	notCond     struct{ cond condition }
	compareCond struct {
		op          string
		left, right operand
	}
	betweenCond struct{ value, low, high operand }
	inCond      struct {
		value   operand
		choices []operand
	}
	funcCond struct {
		name string
		args []operand
	}

	pathOperand  struct{ path docPath }
	valueOperand struct{ alias string }
	sizeOperand  struct{ path docPath }
)

func (andCond) isCondition()     {}
func (orCond) isCondition()      {}
func (notCond) isCondition()     {}
func (compareCond) isCondition() {}
func (betweenCond) isCondition() {}
func (inCond) isCondition()      {}
func (funcCond) isCondition()    {}

func (pathOperand) isOperand()  {}
func (valueOperand) isOperand() {}
func (sizeOperand) isOperand()  {}

// parser is a recursive descent parser for condition, key condition and
// projection expressions. Name aliases are resolved while parsing.
type parser struct {
	tokens []token
	pos    int
	names  map[string]string
}

func newParser(input string, names map[string]string) (*parser, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	return &parser{tokens: tokens, names: names}, nil
}

// parseCondition parses a complete condition expression.
func parseCondition(input string, names map[string]string) (condition, error) {
	p, err := newParser(input, names)
	if err != nil {
		return nil, err
	}
	cond, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, p.errorf("unexpected %q", p.peek().text)
	}
	return cond, nil
}

// parseProjection parses a comma separated list of document paths.
func parseProjection(input string, names map[string]string) ([]docPath, error) {
	p, err := newParser(input, names)
	if err != nil {
		return nil, err
	}
	var paths []docPath
	for {
		path, err := p.path()
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}
	if p.peek().kind != tokEOF {
		return nil, p.errorf("unexpected %q", p.peek().text)
	}
	return paths, nil
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) keyword(word string) bool {
	t := p.peek()
	if t.kind == tokIdent && strings.EqualFold(t.text, word) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, p.errorf("expected %s, got %q", what, t.text)
	}
	return t, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("syntax error at position %d: %s", p.peek().pos, fmt.Sprintf(format, args...))
}

func (p *parser) or() (condition, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.keyword("OR") {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = orCond{left, right}
	}
	return left, nil
}

func (p *parser) and() (condition, error) {
	left, err := p.not()
	if err != nil {
		return nil, err
	}
	for p.keyword("AND") {
		right, err := p.not()
		if err != nil {
			return nil, err
		}
		left = andCond{left, right}
	}
	return left, nil
}

func (p *parser) not() (condition, error) {
	if p.keyword("NOT") {
		cond, err := p.not()
		if err != nil {
			return nil, err
		}
		return notCond{cond}, nil
	}
	return p.primary()
}

var conditionFuncs = map[string]int{
	"attribute_exists":     1,
	"attribute_not_exists": 1,
	"attribute_type":       2,
	"begins_with":          2,
	"contains":             2,
}

func (p *parser) primary() (condition, error) {
	if p.peek().kind == tokLParen {
		p.next()
		cond, err := p.or()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return cond, nil
	}

	if t := p.peek(); t.kind == tokIdent {
		if arity, ok := conditionFuncs[strings.ToLower(t.text)]; ok && p.tokens[p.pos+1].kind == tokLParen {
			return p.function(strings.ToLower(t.text), arity)
		}
	}

	left, err := p.operand()
	if err != nil {
		return nil, err
	}

	switch {
	case p.peek().kind == tokCompare:
		op := p.next().text
		right, err := p.operand()
		if err != nil {
			return nil, err
		}
		return compareCond{op: op, left: left, right: right}, nil

	case p.keyword("BETWEEN"):
		low, err := p.operand()
		if err != nil {
			return nil, err
		}
		if !p.keyword("AND") {
			return nil, p.errorf("expected AND in BETWEEN")
		}
		high, err := p.operand()
		if err != nil {
			return nil, err
		}
		return betweenCond{value: left, low: low, high: high}, nil

	case p.keyword("IN"):
		if _, err := p.expect(tokLParen, "'('"); err != nil {
			return nil, err
		}
		var choices []operand
		for {
			choice, err := p.operand()
			if err != nil {
				return nil, err
			}
			choices = append(choices, choice)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return inCond{value: left, choices: choices}, nil
	}

	return nil, p.errorf("expected comparison, got %q", p.peek().text)
}

func (p *parser) function(name string, arity int) (condition, error) {
	p.next() // name
	p.next() // (
	var args []operand
	for i := 0; i < arity; i++ {
		if i > 0 {
			if _, err := p.expect(tokComma, "','"); err != nil {
				return nil, err
			}
		}
		arg, err := p.operand()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	if _, ok := args[0].(pathOperand); !ok {
		return nil, fmt.Errorf("%s: first argument must be a document path", name)
	}
	return funcCond{name: name, args: args}, nil
}

func (p *parser) operand() (operand, error) {
	t := p.peek()
	switch {
	case t.kind == tokValue:
		p.next()
		return valueOperand{alias: t.text}, nil
	case t.kind == tokIdent && strings.EqualFold(t.text, "size") && p.tokens[p.pos+1].kind == tokLParen:
		p.next()
		p.next()
		path, err := p.path()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return sizeOperand{path: path}, nil
	}
	path, err := p.path()
	if err != nil {
		return nil, err
	}
	return pathOperand{path: path}, nil
}

func (p *parser) path() (docPath, error) {
	first, err := p.pathName()
	if err != nil {
		return nil, err
	}
	path := docPath{{name: first}}
	for {
		switch p.peek().kind {
		case tokDot:
			p.next()
			name, err := p.pathName()
			if err != nil {
				return nil, err
			}
			path = append(path, pathElem{name: name})
		case tokLBracket:
			p.next()
			t, err := p.expect(tokNumber, "list index")
			if err != nil {
				return nil, err
			}
			index, err := strconv.Atoi(t.text)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRBracket, "']'"); err != nil {
				return nil, err
			}
			path = append(path, pathElem{index: index, list: true})
		default:
			return path, nil
		}
	}
}

func (p *parser) pathName() (string, error) {
	t := p.next()
	switch t.kind {
	case tokName:
		name, ok := p.names[t.text]
		if !ok {
			return "", fmt.Errorf("undefined expression attribute name %s", t.text)
		}
		return name, nil
	case tokIdent:
		return t.text, nil
	}
	return "", fmt.Errorf("syntax error at position %d: expected attribute name, got %q", t.pos, t.text)
}
