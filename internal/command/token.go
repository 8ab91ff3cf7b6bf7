// Package command implements the one-line text form of edit actions, as typed
// into a console: a lexer, a parser producing session actions or
// meta-commands, and completions.
//
//	set_name "Customer"
//	edit_new_field type integer
//	edit_field 3 required true
//	:model
package command

import "strings"

// TokenType identifies the kind of lexical token.
type TokenType int

const (
	TokenEOF     TokenType = iota
	TokenIdent             // unquoted word (action, attribute, type name)
	TokenString            // "quoted string"
	TokenInt               // 123
	TokenBool              // true / false
	TokenNull              // null
	TokenMetaCmd           // :help, :model, etc.
	TokenComment           // -- comment text
)

// Token is a single lexical token with its position in the input.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int // byte offset
	Line    int // 1-based
	Col     int // 1-based
}

// String returns a human-readable name for the token type.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenIdent:
		return "identifier"
	case TokenString:
		return "string"
	case TokenInt:
		return "integer"
	case TokenBool:
		return "boolean"
	case TokenNull:
		return "null"
	case TokenMetaCmd:
		return "meta-command"
	case TokenComment:
		return "comment"
	default:
		return "unknown"
	}
}

var keywords = map[string]TokenType{
	"true":  TokenBool,
	"false": TokenBool,
	"null":  TokenNull,
}

// LookupKeyword returns the token type for a word, case-insensitively.
// Words that are not literals are identifiers.
func LookupKeyword(word string) TokenType {
	if t, ok := keywords[strings.ToLower(word)]; ok {
		return t
	}
	return TokenIdent
}
