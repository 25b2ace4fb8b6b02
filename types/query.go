package types

import (
	"fmt"
	"strings"
)

// QueryKind selects how an AttributeQuery value is interpreted by the renderer.
type QueryKind string

const (
	QueryID          QueryKind = "id"
	QueryClassName   QueryKind = "class_name"
	QueryName        QueryKind = "name"
	QueryXPath       QueryKind = "xpath"
	QueryCSSSelector QueryKind = "css"
	QueryTagName     QueryKind = "tag_name"
	QueryLinkText    QueryKind = "link_text"
)

// Valid reports whether k is one of the known query kinds.
func (k QueryKind) Valid() bool {
	switch k {
	case QueryID, QueryClassName, QueryName, QueryXPath, QueryCSSSelector, QueryTagName, QueryLinkText:
		return true
	}
	return false
}

// ParseQueryKind accepts the canonical names plus a few common spellings
// ("class", "tag", "css_selector", "link").
func ParseQueryKind(s string) (QueryKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "id":
		return QueryID, nil
	case "class_name", "class", "classname":
		return QueryClassName, nil
	case "name":
		return QueryName, nil
	case "xpath":
		return QueryXPath, nil
	case "css", "css_selector", "selector":
		return QueryCSSSelector, nil
	case "tag_name", "tag", "tagname":
		return QueryTagName, nil
	case "link_text", "link", "linktext":
		return QueryLinkText, nil
	}
	return "", fmt.Errorf("unknown query kind %q", s)
}

// AttributeQuery identifies an element on the remote page. It is a plain
// value and safe to share between goroutines.
type AttributeQuery struct {
	Kind  QueryKind `yaml:"kind" json:"kind"`
	Value string    `yaml:"value" json:"value"`
}

// ByID builds an id query.
func ByID(v string) AttributeQuery { return AttributeQuery{Kind: QueryID, Value: v} }

// ByClassName builds a class name query.
func ByClassName(v string) AttributeQuery { return AttributeQuery{Kind: QueryClassName, Value: v} }

// ByName builds a name attribute query.
func ByName(v string) AttributeQuery { return AttributeQuery{Kind: QueryName, Value: v} }

// ByXPath builds an XPath query.
func ByXPath(v string) AttributeQuery { return AttributeQuery{Kind: QueryXPath, Value: v} }

// ByCSS builds a CSS selector query.
func ByCSS(v string) AttributeQuery { return AttributeQuery{Kind: QueryCSSSelector, Value: v} }

// ByTagName builds a tag name query.
func ByTagName(v string) AttributeQuery { return AttributeQuery{Kind: QueryTagName, Value: v} }

// ByLinkText builds a link text query.
func ByLinkText(v string) AttributeQuery { return AttributeQuery{Kind: QueryLinkText, Value: v} }

// IsZero reports whether the query was left unset.
func (q AttributeQuery) IsZero() bool {
	return q.Kind == "" && q.Value == ""
}

// Validate checks that the query can be sent to a renderer.
func (q AttributeQuery) Validate() error {
	if !q.Kind.Valid() {
		return fmt.Errorf("invalid query kind %q", q.Kind)
	}
	if strings.TrimSpace(q.Value) == "" {
		return fmt.Errorf("empty %s query", q.Kind)
	}
	return nil
}

func (q AttributeQuery) String() string {
	return string(q.Kind) + "=" + q.Value
}

// UnmarshalYAML accepts either the mapping form {kind, value} or the short
// scalar form "kind=value".
func (q *AttributeQuery) UnmarshalYAML(unmarshal func(any) error) error {
	var short string
	if err := unmarshal(&short); err == nil {
		kind, value, ok := strings.Cut(short, "=")
		if !ok {
			return fmt.Errorf("query %q: expected kind=value", short)
		}
		k, err := ParseQueryKind(kind)
		if err != nil {
			return err
		}
		*q = AttributeQuery{Kind: k, Value: value}
		return nil
	}

	var raw struct {
		Kind  string `yaml:"kind"`
		Value string `yaml:"value"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	if raw.Kind == "" && raw.Value == "" {
		*q = AttributeQuery{}
		return nil
	}
	k, err := ParseQueryKind(raw.Kind)
	if err != nil {
		return err
	}
	*q = AttributeQuery{Kind: k, Value: raw.Value}
	return nil
}
