package command

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes a command line.
type Lexer struct {
	input  string
	pos    int // current byte position
	line   int // 1-based
	col    int // 1-based
	tokens []Token
	errors []error
}

// NewLexer creates a lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: input,
		line:  1,
		col:   1,
	}
}

// Tokenize scans the entire input and returns all tokens plus any errors.
func (l *Lexer) Tokenize() ([]Token, []error) {
	for {
		tok := l.next()
		if tok.Type == TokenComment {
			continue
		}
		l.tokens = append(l.tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return l.tokens, l.errors
}

// peek returns the current rune without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

// peekAt returns the rune at offset from current position.
func (l *Lexer) peekAt(offset int) rune {
	p := l.pos + offset
	if p >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[p:])
	return r
}

// advance moves forward by one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		r := l.peek()
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			l.advance()
		} else {
			break
		}
	}
}

// next scans and returns the next token.
func (l *Lexer) next() Token {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos, Line: l.line, Col: l.col}
	}

	startPos := l.pos
	startLine := l.line
	startCol := l.col
	r := l.peek()

	switch {
	case r == ':' && len(l.tokens) == 0:
		return l.scanMetaCmd(startPos, startLine, startCol)
	case r == '"' || r == '\'':
		return l.scanString(startPos, startLine, startCol)
	case r >= '0' && r <= '9':
		return l.scanNumber(startPos, startLine, startCol)
	case r == '-' && l.peekAt(1) >= '0' && l.peekAt(1) <= '9':
		return l.scanNumber(startPos, startLine, startCol)
	case isIdentStart(r):
		return l.scanIdent(startPos, startLine, startCol)
	case r == '-' && l.peekAt(1) == '-':
		return l.scanComment(startPos, startLine, startCol)
	}

	l.advance()
	l.errors = append(l.errors, fmt.Errorf("line %d col %d: unexpected character %q", startLine, startCol, r))
	return Token{Type: TokenIdent, Literal: string(r), Pos: startPos, Line: startLine, Col: startCol}
}

// scanString reads a quoted string literal.
func (l *Lexer) scanString(startPos, startLine, startCol int) Token {
	quote := l.advance()
	var b strings.Builder
	for l.pos < len(l.input) {
		r := l.advance()
		if r == quote {
			return Token{Type: TokenString, Literal: b.String(), Pos: startPos, Line: startLine, Col: startCol}
		}
		if r == '\\' {
			next := l.advance()
			switch next {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '"', '\'':
				b.WriteRune(next)
			default:
				b.WriteByte('\\')
				b.WriteRune(next)
			}
			continue
		}
		b.WriteRune(r)
	}
	l.errors = append(l.errors, fmt.Errorf("line %d col %d: unterminated string", startLine, startCol))
	return Token{Type: TokenString, Literal: b.String(), Pos: startPos, Line: startLine, Col: startCol}
}

// scanNumber reads an integer literal with an optional leading '-'.
func (l *Lexer) scanNumber(startPos, startLine, startCol int) Token {
	start := l.pos
	if l.peek() == '-' {
		l.advance()
	}
	for l.pos < len(l.input) {
		r := l.peek()
		if r < '0' || r > '9' {
			break
		}
		l.advance()
	}
	return Token{Type: TokenInt, Literal: l.input[start:l.pos], Pos: startPos, Line: startLine, Col: startCol}
}

// scanIdent reads an identifier or literal keyword.
func (l *Lexer) scanIdent(startPos, startLine, startCol int) Token {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.peek()) {
		l.advance()
	}
	lit := l.input[start:l.pos]
	return Token{Type: LookupKeyword(lit), Literal: lit, Pos: startPos, Line: startLine, Col: startCol}
}

// scanMetaCmd reads a meta-command (e.g., :help, :model).
func (l *Lexer) scanMetaCmd(startPos, startLine, startCol int) Token {
	l.advance() // consume ':'
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.peek()) {
		l.advance()
	}
	return Token{Type: TokenMetaCmd, Literal: ":" + l.input[start:l.pos], Pos: startPos, Line: startLine, Col: startCol}
}

// scanComment reads a -- comment to end of line.
func (l *Lexer) scanComment(startPos, startLine, startCol int) Token {
	start := l.pos
	for l.pos < len(l.input) && l.peek() != '\n' {
		l.advance()
	}
	return Token{Type: TokenComment, Literal: l.input[start:l.pos], Pos: startPos, Line: startLine, Col: startCol}
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
