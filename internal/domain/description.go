package domain

import (
	"strings"
)

type DescriptionKind uint8

const (
	DescriptionNone DescriptionKind = iota
	DescriptionPlain
	DescriptionRich
)

// DocNode is one node of an Atlassian Document Format tree.
type DocNode struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []DocNode      `json:"content,omitempty"`
}

// Description is either absent, plain text (API v2 / wiki markup) or a rich document (API v3).
type Description struct {
	Kind  DescriptionKind
	Plain string
	Doc   *DocNode
}

func PlainText(s string) Description {
	if s == "" {
		return Description{}
	}
	return Description{Kind: DescriptionPlain, Plain: s}
}

func RichDocument(doc *DocNode) Description {
	if doc == nil {
		return Description{}
	}
	return Description{Kind: DescriptionRich, Doc: doc}
}

// Text flattens the description into a searchable string. Formatting is dropped.
func (d Description) Text() string {
	switch d.Kind {
	case DescriptionPlain:
		return d.Plain
	case DescriptionRich:
		var b strings.Builder
		flatten(&b, d.Doc)
		return strings.TrimSpace(b.String())
	}
	return ""
}

// inline nodes are joined without a separator, everything else is a block.
var inlineNodes = map[string]bool{
	"text":       true,
	"mention":    true,
	"emoji":      true,
	"status":     true,
	"inlineCard": true,
	"date":       true,
}

func flatten(b *strings.Builder, n *DocNode) {
	if n == nil {
		return
	}
	switch n.Type {
	case "text":
		b.WriteString(n.Text)
	case "hardBreak":
		b.WriteByte(' ')
	case "mention", "emoji", "status":
		if s, ok := n.Attrs["text"].(string); ok {
			b.WriteString(s)
		}
	case "inlineCard":
		if s, ok := n.Attrs["url"].(string); ok {
			b.WriteString(s)
		}
	}
	for i := range n.Content {
		flatten(b, &n.Content[i])
	}
	if !inlineNodes[n.Type] && n.Type != "hardBreak" {
		b.WriteByte(' ')
	}
}
