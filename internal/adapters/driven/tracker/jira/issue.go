package jira

import (
	"encoding/json"
	"strings"
)

// issue is a Jira issue with its fields kept raw so that arbitrary
// custom fields can be inspected.
type issue struct {
	Key    string                     `json:"key"`
	Fields map[string]json.RawMessage `json:"fields"`
}

type named struct {
	Name string `json:"name"`
}

type user struct {
	DisplayName  string `json:"displayName"`
	Name         string `json:"name"`
	EmailAddress string `json:"emailAddress"`
}

func (u *user) name() string {
	if u == nil {
		return ""
	}
	switch {
	case u.DisplayName != "":
		return u.DisplayName
	case u.Name != "":
		return u.Name
	default:
		return u.EmailAddress
	}
}

type comment struct {
	Author *user           `json:"author"`
	Body   json.RawMessage `json:"body"`
}

type parent struct {
	Key    string `json:"key"`
	Fields struct {
		Summary   string `json:"summary"`
		IssueType named  `json:"issuetype"`
	} `json:"fields"`
}

// issueFields are the well-known fields of an issue.
type issueFields struct {
	Summary     string          `json:"summary"`
	Description json.RawMessage `json:"description"`
	Status      named           `json:"status"`
	IssueType   named           `json:"issuetype"`
	Assignee    *user           `json:"assignee"`
	Created     string          `json:"created"`
	Parent      *parent         `json:"parent"`
	Project     struct {
		Key string `json:"key"`
	} `json:"project"`
	Comment struct {
		Comments []comment `json:"comments"`
	} `json:"comment"`
	EpicLink string `json:"-"`
}

// decode extracts the well-known fields. A field whose shape does not
// match is left zero rather than failing the whole issue.
func (i *issue) decode() issueFields {
	var f issueFields
	loose := func(key string, dst any) {
		if raw, ok := i.Fields[key]; ok {
			_ = json.Unmarshal(raw, dst)
		}
	}
	loose("summary", &f.Summary)
	loose("status", &f.Status)
	loose("issuetype", &f.IssueType)
	loose("assignee", &f.Assignee)
	loose("created", &f.Created)
	loose("parent", &f.Parent)
	loose("project", &f.Project)
	loose("comment", &f.Comment)
	loose(epicLinkField, &f.EpicLink)
	f.Description = i.Fields["description"]
	return f
}

// mergeComments joins comment bodies in order as "author: text".
func mergeComments(comments []comment) string {
	parts := make([]string, 0, len(comments))
	for _, c := range comments {
		text := FlattenText(c.Body)
		if text == "" {
			continue
		}
		if name := c.Author.name(); name != "" {
			text = name + ": " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}
