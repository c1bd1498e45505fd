package jira

import (
	"encoding/json"
	"strings"
)

// adfNode is one node of an Atlassian Document Format tree.
type adfNode struct {
	Type    string         `json:"type"`
	Text    string         `json:"text"`
	Attrs   map[string]any `json:"attrs"`
	Content []adfNode      `json:"content"`
}

// blockTypes end with a line break when flattened.
var blockTypes = map[string]bool{
	"paragraph":  true,
	"heading":    true,
	"codeBlock":  true,
	"blockquote": true,
	"rule":       true,
	"tableRow":   true,
	"mediaGroup": true,
	"panel":      true,
}

// FlattenText renders a Jira rich-text field as plain text. The field may
// be an ADF document (REST v3), a plain string (REST v2) or null.
func FlattenText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var doc adfNode
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	var b strings.Builder
	writeNode(&b, &doc)
	return collapseBlankLines(b.String())
}

func writeNode(b *strings.Builder, n *adfNode) {
	switch n.Type {
	case "text":
		b.WriteString(n.Text)
		return
	case "hardBreak":
		b.WriteString("\n")
		return
	case "mention":
		b.WriteString(attr(n, "text"))
		return
	case "emoji":
		b.WriteString(attr(n, "shortName"))
		return
	case "inlineCard", "blockCard":
		b.WriteString(attr(n, "url"))
		return
	case "listItem":
		b.WriteString("- ")
	case "tableCell", "tableHeader":
		defer b.WriteString(" | ")
	case "panel":
		// error panels are dropped, every other panel type is kept
		if attr(n, "panelType") == "error" {
			return
		}
	}

	for i := range n.Content {
		writeNode(b, &n.Content[i])
	}

	if blockTypes[n.Type] || n.Type == "listItem" {
		if !strings.HasSuffix(b.String(), "\n") {
			b.WriteString("\n")
		}
	}
}

func attr(n *adfNode, key string) string {
	if v, ok := n.Attrs[key].(string); ok {
		return v
	}
	return ""
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " ")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
