package formula

import "unicode"

// Lexer tokenizes a formula string.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	col     int  // current column number (1-based)
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.col++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) currentPos() Position {
	return Position{Column: l.col, Offset: l.pos}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	pos := l.currentPos()

	var tok Token
	tok.Pos = pos

	switch l.ch {
	case 0:
		tok.Type = TOKEN_EOF
		tok.Literal = ""
	case '(':
		tok = l.newToken(TOKEN_LPAREN, "(")
	case ')':
		tok = l.newToken(TOKEN_RPAREN, ")")
	case '[':
		tok = l.newToken(TOKEN_LBRACKET, "[")
	case ']':
		tok = l.newToken(TOKEN_RBRACKET, "]")
	case '{':
		tok = l.newToken(TOKEN_LBRACE, "{")
	case '}':
		tok = l.newToken(TOKEN_RBRACE, "}")
	case ',':
		tok = l.newToken(TOKEN_COMMA, ",")
	case ':':
		tok = l.newToken(TOKEN_COLON, ":")
	case '=':
		tok = l.newToken(TOKEN_EQ, "=")
	case '-':
		tok = l.newToken(TOKEN_MINUS, "-")
	case '+':
		tok = l.newToken(TOKEN_PLUS, "+")
	case '\'', '"':
		tok.Type = TOKEN_STRING
		tok.Literal = l.readString(l.ch)
		tok.Pos = pos
		return tok
	default:
		if isLetter(l.ch) || l.ch == '_' {
			tok.Literal = l.readIdentifier()
			tok.Type = LookupIdent(tok.Literal)
			tok.Pos = pos
			return tok
		}
		if isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())) {
			tok.Type = TOKEN_NUMBER
			tok.Literal = l.readNumber()
			tok.Pos = pos
			return tok
		}
		tok = l.newToken(TOKEN_ILLEGAL, string(l.ch))
	}

	l.readChar()
	return tok
}

func (l *Lexer) newToken(tokenType TokenType, literal string) Token {
	return Token{Type: tokenType, Literal: literal, Pos: l.currentPos()}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// readString reads a quoted string literal terminated by the given quote
// character. Backslash escapes for the quote and backslash are honoured.
func (l *Lexer) readString(quote byte) string {
	l.readChar() // skip opening quote

	var result []byte
	for {
		if l.ch == 0 {
			// Unterminated string; the parser reports it via the
			// missing closing token.
			break
		}
		if l.ch == '\\' && (l.peekChar() == quote || l.peekChar() == '\\') {
			l.readChar()
			result = append(result, l.ch)
			l.readChar()
			continue
		}
		if l.ch == quote {
			l.readChar() // skip closing quote
			break
		}
		result = append(result, l.ch)
		l.readChar()
	}
	return string(result)
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch))
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
