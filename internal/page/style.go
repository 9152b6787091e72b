package page

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
)

// Decl is a single inline style declaration.
type Decl struct {
	Property string
	Value    string
}

// Declarations parses an inline style attribute. Unparseable input yields
// no declarations.
func Declarations(style string) []*css.Declaration {
	if strings.TrimSpace(style) == "" {
		return nil
	}
	decls, err := parser.ParseDeclarations(style)
	if err != nil {
		return nil
	}
	return decls
}

// Style returns the value of prop in the element's inline style.
func Style(s *goquery.Selection, prop string) string {
	style, _ := s.Attr("style")
	value := ""
	for _, d := range Declarations(style) {
		if strings.EqualFold(strings.TrimSpace(d.Property), prop) {
			value = strings.TrimSpace(d.Value)
		}
	}
	return value
}

// SetStyle sets the given declarations on every element in s. An empty
// value removes the property.
func SetStyle(s *goquery.Selection, decls ...Decl) {
	for _, n := range s.Nodes {
		setNodeStyle(n, decls...)
	}
}

// IsHidden reports whether the element's inline style sets display: none.
func IsHidden(s *goquery.Selection) bool {
	return strings.EqualFold(Style(s, "display"), "none")
}

func setNodeStyle(n *html.Node, decls ...Decl) {
	current := Declarations(attr(n, "style"))

	for _, want := range decls {
		prop := strings.ToLower(want.Property)
		kept := current[:0]
		replaced := false
		for _, d := range current {
			if strings.EqualFold(strings.TrimSpace(d.Property), prop) {
				if want.Value != "" && !replaced {
					d.Value = want.Value
					d.Important = false
					kept = append(kept, d)
					replaced = true
				}
				continue
			}
			kept = append(kept, d)
		}
		current = kept
		if want.Value != "" && !replaced {
			current = append(current, &css.Declaration{Property: prop, Value: want.Value})
		}
	}

	if len(current) == 0 {
		removeAttr(n, "style")
		return
	}
	setAttr(n, "style", formatDeclarations(current))
}

func formatDeclarations(decls []*css.Declaration) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		s := fmt.Sprintf("%s: %s", strings.TrimSpace(d.Property), strings.TrimSpace(d.Value))
		if d.Important {
			s += " !important"
		}
		parts = append(parts, s+";")
	}
	return strings.Join(parts, " ")
}
