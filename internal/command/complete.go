package command

import (
	"strconv"
	"strings"

	"github.com/matthewbaird/modeleditor/internal/editor"
	"github.com/matthewbaird/modeleditor/internal/meta"
	"github.com/matthewbaird/modeleditor/internal/types"
)

// CompletionItem is a single autocomplete suggestion.
type CompletionItem struct {
	Label  string `json:"label"`
	Kind   string `json:"kind"` // "action", "meta", "field", "attribute", "value"
	Detail string `json:"detail,omitempty"`
}

// Complete returns suggestions for text up to cursor. st supplies the field
// ids of the draft being edited and may be nil.
func Complete(text string, cursor int, st *editor.State) []CompletionItem {
	if cursor < 0 || cursor > len(text) {
		cursor = len(text)
	}
	prefix := text[:cursor]

	tokens, _ := NewLexer(prefix).Tokenize()
	if len(tokens) > 0 && tokens[len(tokens)-1].Type == TokenEOF {
		tokens = tokens[:len(tokens)-1]
	}

	// A token that touches the cursor is still being typed.
	partial := ""
	if len(tokens) > 0 {
		last := tokens[len(tokens)-1]
		typing := len(prefix) > 0 && !isSpace(prefix[len(prefix)-1])
		switch {
		case last.Type == TokenString && typing:
			return nil
		case typing:
			partial = strings.ToLower(last.Literal)
			tokens = tokens[:len(tokens)-1]
		}
	}

	if len(tokens) == 0 {
		items := filterItems(Actions(), partial, "action")
		return append(items, filterItems(meta.Names, partial, "meta")...)
	}

	first := tokens[0]
	if first.Type == TokenMetaCmd {
		if first.Literal == ":help" && len(tokens) == 1 {
			return filterItems([]string{"save", "commit_field", "names"}, partial, "value")
		}
		return nil
	}
	// tokens[i+1] holds args[i], so idx is the argument being typed.
	args, ok := actionArgs[strings.ToLower(first.Literal)]
	idx := len(tokens) - 1
	if !ok || idx >= len(args) {
		return nil
	}

	switch args[idx] {
	case "field_id":
		return completeFieldIDs(st, partial)
	case "attr":
		return filterItems(Attributes(), partial, "attribute")
	case "value":
		return completeValues(strings.ToLower(tokens[idx].Literal), partial)
	}
	return nil
}

func completeFieldIDs(st *editor.State, partial string) []CompletionItem {
	if st == nil {
		return nil
	}
	var items []CompletionItem
	for _, fs := range st.Fields {
		id := strconv.Itoa(int(fs.Field.ID))
		if strings.HasPrefix(id, partial) {
			items = append(items, CompletionItem{Label: id, Kind: "field", Detail: fs.Field.Name})
		}
	}
	return items
}

func completeValues(attr, partial string) []CompletionItem {
	switch attr {
	case editor.AttrName:
		return nil
	case editor.AttrType:
		var items []CompletionItem
		for _, o := range types.Options()[1:] {
			name := o.Value.String()
			if strings.HasPrefix(name, partial) {
				items = append(items, CompletionItem{Label: name, Kind: "value", Detail: o.Label})
			}
		}
		return items
	default:
		return filterItems([]string{"true", "false"}, partial, "value")
	}
}

func filterItems(candidates []string, partial, kind string) []CompletionItem {
	var items []CompletionItem
	for _, c := range candidates {
		if partial == "" || strings.HasPrefix(strings.ToLower(c), partial) {
			items = append(items, CompletionItem{Label: c, Kind: kind})
		}
	}
	return items
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
