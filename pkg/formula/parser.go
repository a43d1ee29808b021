// Package formula parses derived-variable transformation formulas of the
// form name(arg, ..., kw=val, ...). The grammar is deliberately tiny: the
// callee must be a bare identifier and every argument must be a literal
// (string, number, bool, None, list, or map, optionally nested), so a
// formula can never smuggle in an expression that needs evaluation.
package formula

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/marinad-syro/inferra/pkg/transform"
)

// Call is a parsed formula: one function call over literal arguments.
type Call struct {
	Name   string
	Args   []any
	Kwargs map[string]any
}

// SyntaxError is returned when the input is not exactly one call
// expression over literal arguments.
type SyntaxError struct {
	Pos     Position
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid formula syntax at column %d: %s", e.Pos.Column, e.Message)
}

// Normalize rewrites backtick-quoted identifiers (used to denote column
// names containing spaces) to ordinary quoted strings, since the grammar
// does not natively support backticks.
func Normalize(formula string) string {
	return strings.ReplaceAll(formula, "`", "'")
}

// Parse normalizes and parses a formula string into a Call, without
// checking the callee against the transformation registry.
func Parse(formula string) (*Call, error) {
	p := newParser(Normalize(formula))
	return p.parseFormula()
}

// ParseAndValidate parses a formula and verifies the callee is a
// registered transformation, returning UnknownTransformationError with
// the valid names otherwise.
func ParseAndValidate(formula string) (*Call, error) {
	call, err := Parse(formula)
	if err != nil {
		return nil, err
	}
	if !transform.IsRegistered(call.Name) {
		return nil, &transform.UnknownTransformationError{
			Name:      call.Name,
			Available: transform.Names(),
		}
	}
	return call, nil
}

// parser is a recursive-descent parser over the formula token stream.
type parser struct {
	lexer *Lexer
	cur   Token
	peek  Token
}

func newParser(input string) *parser {
	p := &parser{lexer: NewLexer(input)}
	// establish cur and peek
	p.next()
	p.next()
	return p
}

func (p *parser) next() {
	p.cur = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Pos: p.cur.Pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(t TokenType) error {
	if p.cur.Type != t {
		return p.errorf("expected %s, got %q", t, p.cur.Literal)
	}
	p.next()
	return nil
}

// parseFormula parses exactly one call expression followed by EOF.
func (p *parser) parseFormula() (*Call, error) {
	if p.cur.Type != TOKEN_IDENT {
		return nil, p.errorf("formula must be a function call (e.g. 'function_name(args)')")
	}
	call := &Call{Name: p.cur.Literal, Kwargs: make(map[string]any)}
	p.next()

	if err := p.expect(TOKEN_LPAREN); err != nil {
		return nil, err
	}

	seenKeyword := false
	for p.cur.Type != TOKEN_RPAREN {
		if p.cur.Type == TOKEN_EOF {
			return nil, p.errorf("unterminated call, expected ')'")
		}

		// keyword argument: IDENT '=' literal
		if p.cur.Type == TOKEN_IDENT && p.peek.Type == TOKEN_EQ {
			key := p.cur.Literal
			p.next() // identifier
			p.next() // '='
			val, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			if _, dup := call.Kwargs[key]; dup {
				return nil, p.errorf("duplicate keyword argument %q", key)
			}
			call.Kwargs[key] = val
			seenKeyword = true
		} else {
			if seenKeyword {
				return nil, p.errorf("positional argument follows keyword argument")
			}
			val, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, val)
		}

		if p.cur.Type == TOKEN_COMMA {
			p.next()
			continue
		}
		if p.cur.Type != TOKEN_RPAREN {
			return nil, p.errorf("expected ',' or ')', got %q", p.cur.Literal)
		}
	}
	p.next() // ')'

	if p.cur.Type != TOKEN_EOF {
		return nil, p.errorf("unexpected input after call: %q", p.cur.Literal)
	}
	return call, nil
}

// parseLiteral parses one literal value: string, number, bool, None, list,
// or map. Anything else (an identifier, a nested call) is a syntax error,
// which is what makes the grammar safe.
func (p *parser) parseLiteral() (any, error) {
	switch p.cur.Type {
	case TOKEN_STRING:
		s := p.cur.Literal
		p.next()
		return s, nil

	case TOKEN_NUMBER:
		return p.parseNumber(false)

	case TOKEN_MINUS:
		p.next()
		if p.cur.Type != TOKEN_NUMBER {
			return nil, p.errorf("expected number after '-', got %q", p.cur.Literal)
		}
		return p.parseNumber(true)

	case TOKEN_PLUS:
		p.next()
		if p.cur.Type != TOKEN_NUMBER {
			return nil, p.errorf("expected number after '+', got %q", p.cur.Literal)
		}
		return p.parseNumber(false)

	case TOKEN_TRUE:
		p.next()
		return true, nil

	case TOKEN_FALSE:
		p.next()
		return false, nil

	case TOKEN_NONE:
		p.next()
		return nil, nil

	case TOKEN_LBRACKET:
		return p.parseList()

	case TOKEN_LBRACE:
		return p.parseMap()

	case TOKEN_IDENT:
		return nil, p.errorf("argument %q is not a literal; column names must be quoted", p.cur.Literal)

	default:
		return nil, p.errorf("invalid argument: %q", p.cur.Literal)
	}
}

func (p *parser) parseNumber(negative bool) (any, error) {
	f, err := strconv.ParseFloat(p.cur.Literal, 64)
	if err != nil {
		return nil, p.errorf("invalid number literal %q", p.cur.Literal)
	}
	p.next()
	if negative {
		f = -f
	}
	return f, nil
}

func (p *parser) parseList() (any, error) {
	p.next() // '['
	list := []any{}
	for p.cur.Type != TOKEN_RBRACKET {
		if p.cur.Type == TOKEN_EOF {
			return nil, p.errorf("unterminated list, expected ']'")
		}
		val, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		list = append(list, val)

		if p.cur.Type == TOKEN_COMMA {
			p.next()
			continue
		}
		if p.cur.Type != TOKEN_RBRACKET {
			return nil, p.errorf("expected ',' or ']', got %q", p.cur.Literal)
		}
	}
	p.next() // ']'
	return list, nil
}

// parseMap parses a map literal. Keys must be string or number literals;
// number keys are canonicalized to their shortest decimal text so lookup
// against cell values stays exact.
func (p *parser) parseMap() (any, error) {
	p.next() // '{'
	m := make(map[string]any)
	for p.cur.Type != TOKEN_RBRACE {
		if p.cur.Type == TOKEN_EOF {
			return nil, p.errorf("unterminated map, expected '}'")
		}

		var key string
		switch p.cur.Type {
		case TOKEN_STRING:
			key = p.cur.Literal
			p.next()
		case TOKEN_NUMBER:
			f, err := strconv.ParseFloat(p.cur.Literal, 64)
			if err != nil {
				return nil, p.errorf("invalid number literal %q", p.cur.Literal)
			}
			key = strconv.FormatFloat(f, 'g', -1, 64)
			p.next()
		default:
			return nil, p.errorf("map keys must be string or number literals, got %q", p.cur.Literal)
		}

		if err := p.expect(TOKEN_COLON); err != nil {
			return nil, err
		}

		val, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		m[key] = val

		if p.cur.Type == TOKEN_COMMA {
			p.next()
			continue
		}
		if p.cur.Type != TOKEN_RBRACE {
			return nil, p.errorf("expected ',' or '}', got %q", p.cur.Literal)
		}
	}
	p.next() // '}'
	return m, nil
}
