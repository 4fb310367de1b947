package template

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// EvalExpr evaluates an integer expression over named variables.
// Supports literals, identifiers, unary minus, + - * / % and parentheses.
// Example: "(i-1)*7" with vars {"i": 3} => 14
func EvalExpr(expr string, vars map[string]int) (int, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("empty expression")
	}

	p := &exprParser{input: expr, vars: vars}
	result, err := p.sum()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected character at position %d: %c", p.pos, p.input[p.pos])
	}
	return result, nil
}

type exprParser struct {
	input string
	pos   int
	vars  map[string]int
}

// peek returns the next non-space byte, or 0 at end of input.
func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) sum() (int, error) {
	left, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.term()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *exprParser) term() (int, error) {
	left, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' && op != '%' {
			return left, nil
		}
		at := p.pos
		p.pos++
		right, err := p.unary()
		if err != nil {
			return 0, err
		}
		switch op {
		case '*':
			left *= right
		case '/', '%':
			if right == 0 {
				return 0, fmt.Errorf("division by zero at position %d", at)
			}
			if op == '/' {
				left /= right
			} else {
				left %= right
			}
		}
	}
}

func (p *exprParser) unary() (int, error) {
	if p.peek() == '-' {
		p.pos++
		v, err := p.unary()
		return -v, err
	}
	return p.atom()
}

func (p *exprParser) atom() (int, error) {
	ch := p.peek()
	if ch == 0 {
		return 0, fmt.Errorf("unexpected end of expression")
	}

	switch {
	case ch == '(':
		p.pos++
		val, err := p.sum()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("expected ')' at position %d", p.pos)
		}
		p.pos++
		return val, nil

	case isDigit(ch):
		start := p.pos
		for p.pos < len(p.input) && isDigit(p.input[p.pos]) {
			p.pos++
		}
		return strconv.Atoi(p.input[start:p.pos])

	case isIdentStart(ch):
		start := p.pos
		for p.pos < len(p.input) && (isIdentStart(p.input[p.pos]) || isDigit(p.input[p.pos])) {
			p.pos++
		}
		name := p.input[start:p.pos]
		val, ok := p.vars[name]
		if !ok {
			return 0, fmt.Errorf("undefined variable: %s", name)
		}
		return val, nil
	}

	return 0, fmt.Errorf("unexpected character '%c' at position %d", ch, p.pos)
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || unicode.IsLetter(rune(c)) }

// ExpandTemplate replaces every {expr} block in tmpl with its value.
// Example: "Pour week {i}" with vars {"i": 3} => "Pour week 3"
func ExpandTemplate(tmpl string, vars map[string]int) (string, error) {
	var out strings.Builder
	for i := 0; i < len(tmpl); {
		if tmpl[i] != '{' {
			out.WriteByte(tmpl[i])
			i++
			continue
		}
		end := strings.IndexByte(tmpl[i+1:], '}')
		if end < 0 {
			return "", fmt.Errorf("unmatched '{' at position %d", i)
		}
		expr := tmpl[i+1 : i+1+end]
		val, err := EvalExpr(expr, vars)
		if err != nil {
			return "", fmt.Errorf("evaluating expression '%s': %w", expr, err)
		}
		out.WriteString(strconv.Itoa(val))
		i += end + 2
	}
	return out.String(), nil
}

// evalIntExpr accepts a bare integer, a {expr} string or a raw expression.
// An empty string evaluates to fallback.
func evalIntExpr(expr string, vars map[string]int, fallback int) (int, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return fallback, nil
	}
	if n, err := strconv.Atoi(expr); err == nil {
		return n, nil
	}
	if strings.ContainsRune(expr, '{') {
		expanded, err := ExpandTemplate(expr, vars)
		if err != nil {
			return 0, err
		}
		return EvalExpr(expanded, vars)
	}
	return EvalExpr(expr, vars)
}
