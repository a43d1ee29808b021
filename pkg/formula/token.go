package formula

import "fmt"

// TokenType identifies the lexical class of a token.
type TokenType int

const (
	TOKEN_ILLEGAL TokenType = iota
	TOKEN_EOF

	TOKEN_IDENT  // map_binary, normalize
	TOKEN_STRING // 'Status' or "Status"
	TOKEN_NUMBER // 42, 3.14, 1e-5

	TOKEN_TRUE  // True / true
	TOKEN_FALSE // False / false
	TOKEN_NONE  // None / null

	TOKEN_LPAREN   // (
	TOKEN_RPAREN   // )
	TOKEN_LBRACKET // [
	TOKEN_RBRACKET // ]
	TOKEN_LBRACE   // {
	TOKEN_RBRACE   // }
	TOKEN_COMMA    // ,
	TOKEN_COLON    // :
	TOKEN_EQ       // =
	TOKEN_MINUS    // -
	TOKEN_PLUS     // +
)

var tokenNames = map[TokenType]string{
	TOKEN_ILLEGAL:  "ILLEGAL",
	TOKEN_EOF:      "EOF",
	TOKEN_IDENT:    "IDENT",
	TOKEN_STRING:   "STRING",
	TOKEN_NUMBER:   "NUMBER",
	TOKEN_TRUE:     "TRUE",
	TOKEN_FALSE:    "FALSE",
	TOKEN_NONE:     "NONE",
	TOKEN_LPAREN:   "(",
	TOKEN_RPAREN:   ")",
	TOKEN_LBRACKET: "[",
	TOKEN_RBRACKET: "]",
	TOKEN_LBRACE:   "{",
	TOKEN_RBRACE:   "}",
	TOKEN_COMMA:    ",",
	TOKEN_COLON:    ":",
	TOKEN_EQ:       "=",
	TOKEN_MINUS:    "-",
	TOKEN_PLUS:     "+",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// keywords maps literal keywords onto their token types. Both the Python
// spellings and the lowercase variants are accepted.
var keywords = map[string]TokenType{
	"True":  TOKEN_TRUE,
	"true":  TOKEN_TRUE,
	"False": TOKEN_FALSE,
	"false": TOKEN_FALSE,
	"None":  TOKEN_NONE,
	"null":  TOKEN_NONE,
}

// LookupIdent classifies an identifier as a keyword or a plain identifier.
func LookupIdent(ident string) TokenType {
	if t, ok := keywords[ident]; ok {
		return t
	}
	return TOKEN_IDENT
}

// Position is a location within the formula string.
type Position struct {
	Column int // 1-based
	Offset int // 0-based byte offset
}

// Token is a lexical token with its source position.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}
