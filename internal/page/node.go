package page

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Button builds a <button type="button"> element with the given class,
// label and inline style.
func Button(class, label string, style ...Decl) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Button,
		Data:     "button",
		Attr: []html.Attribute{
			{Key: "type", Val: "button"},
			{Key: "class", Val: class},
		},
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: label})
	if len(style) > 0 {
		setNodeStyle(n, style...)
	}
	return n
}

// SetText replaces the children of n with a single text node.
func SetText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

// InsertBefore inserts nodes, in order, as siblings right before ref.
func InsertBefore(ref *html.Node, nodes ...*html.Node) {
	if ref.Parent == nil {
		return
	}
	for _, n := range nodes {
		detach(n)
		ref.Parent.InsertBefore(n, ref)
	}
}

// MoveAfter moves n so that it directly follows ref.
func MoveAfter(ref, n *html.Node) {
	if ref.Parent == nil || ref == n {
		return
	}
	detach(n)
	ref.Parent.InsertBefore(n, ref.NextSibling)
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
