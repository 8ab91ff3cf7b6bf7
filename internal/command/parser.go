package command

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/matthewbaird/modeleditor/internal/editor"
	"github.com/matthewbaird/modeleditor/internal/session"
	"github.com/matthewbaird/modeleditor/internal/types"
)

// Command is a parsed line: either an action or a meta-command.
type Command struct {
	Action *session.Action
	Meta   string   // ":model", set when the line is a meta-command
	Args   []string // meta-command arguments
}

// actionArgs lists the actions and the arguments each takes.
var actionArgs = map[string][]string{
	session.ActionStartField:   nil,
	session.ActionCancelField:  nil,
	session.ActionCommitField:  nil,
	session.ActionSave:         nil,
	session.ActionCancel:       nil,
	session.ActionSetName:      {"name"},
	session.ActionEditNewField: {"attr", "value"},
	session.ActionEditField:    {"field_id", "attr", "value"},
	session.ActionDeleteField:  {"field_id"},
}

// Actions returns every action name in a fixed order.
func Actions() []string {
	return []string{
		session.ActionSetName,
		session.ActionStartField,
		session.ActionEditNewField,
		session.ActionCommitField,
		session.ActionCancelField,
		session.ActionEditField,
		session.ActionDeleteField,
		session.ActionSave,
		session.ActionCancel,
	}
}

// Attributes returns the field attributes accepted by the edit actions.
func Attributes() []string {
	return []string{editor.AttrName, editor.AttrType, editor.AttrPrimaryKey, editor.AttrRequired, editor.AttrUnique}
}

// Parse parses one command line.
func Parse(line string) (Command, error) {
	tokens, errs := NewLexer(line).Tokenize()
	if len(errs) > 0 {
		return Command{}, errs[0]
	}
	p := &parser{tokens: tokens}
	return p.parse()
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parse() (Command, error) {
	first := p.advance()
	switch first.Type {
	case TokenEOF:
		return Command{}, newParseErrorf(first, "empty command")
	case TokenMetaCmd:
		cmd := Command{Meta: first.Literal}
		for p.peek().Type != TokenEOF {
			cmd.Args = append(cmd.Args, p.advance().Literal)
		}
		return cmd, nil
	case TokenIdent:
	default:
		return Command{}, newParseErrorf(first, "expected an action, got %s", first.Type)
	}

	name := strings.ToLower(first.Literal)
	args, ok := actionArgs[name]
	if !ok {
		err := newParseErrorf(first, "unknown action %q", first.Literal)
		err.Suggestion = suggestFrom(name, Actions(), 3)
		return Command{}, err
	}

	a := session.Action{Type: name}
	for _, arg := range args {
		var err error
		switch arg {
		case "field_id":
			a.FieldID, err = p.fieldID()
		case "attr":
			a.Attr, err = p.attr()
		case "name":
			a.Value, err = p.name()
		case "value":
			a.Value, err = p.value(a.Attr)
		}
		if err != nil {
			return Command{}, err
		}
	}
	if tok := p.peek(); tok.Type != TokenEOF {
		return Command{}, newParseErrorf(tok, "unexpected %s %q after %s", tok.Type, tok.Literal, name)
	}
	return Command{Action: &a}, nil
}

func (p *parser) fieldID() (types.FieldID, error) {
	tok := p.advance()
	if tok.Type != TokenInt {
		return 0, newParseErrorf(tok, "expected field id, got %s", tok.Type)
	}
	n, err := strconv.Atoi(tok.Literal)
	if err != nil || n <= 0 {
		return 0, newParseErrorf(tok, "invalid field id %q", tok.Literal)
	}
	return types.FieldID(n), nil
}

func (p *parser) attr() (string, error) {
	tok := p.advance()
	if tok.Type != TokenIdent {
		return "", newParseErrorf(tok, "expected attribute, got %s", tok.Type)
	}
	attr := strings.ToLower(tok.Literal)
	for _, a := range Attributes() {
		if a == attr {
			return attr, nil
		}
	}
	err := newParseErrorf(tok, "unknown attribute %q", tok.Literal)
	err.Suggestion = suggestFrom(attr, Attributes(), 3)
	return "", err
}

// name reads a model or field name. Quoting is optional for single words.
func (p *parser) name() (json.RawMessage, error) {
	tok := p.advance()
	switch tok.Type {
	case TokenString, TokenIdent:
		return marshal(tok.Literal), nil
	case TokenEOF:
		return nil, newParseErrorf(tok, "expected name")
	default:
		return nil, newParseErrorf(tok, "expected name, got %s", tok.Type)
	}
}

// value reads the new value of attr and encodes it the way ParseEdit reads it.
func (p *parser) value(attr string) (json.RawMessage, error) {
	if attr == editor.AttrName {
		return p.name()
	}
	tok := p.advance()
	switch attr {
	case editor.AttrType:
		switch tok.Type {
		case TokenNull:
			return json.RawMessage("null"), nil
		case TokenIdent, TokenString:
			if _, err := types.ParseDataType(tok.Literal); err != nil {
				return nil, newParseErrorf(tok, "%v", err)
			}
			return marshal(strings.ToLower(tok.Literal)), nil
		}
		return nil, newParseErrorf(tok, "expected data type, got %s", tok.Type)
	default:
		if tok.Type != TokenBool {
			return nil, newParseErrorf(tok, "%s expects true or false, got %s", attr, tok.Type)
		}
		return json.RawMessage(strings.ToLower(tok.Literal)), nil
	}
}

func marshal(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}
