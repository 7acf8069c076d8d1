// Package domdiff compares two HTML documents structurally. It is a pure
// function of its inputs: no network, no storage.
//
// Elements are identified by their root-to-node selector path. Path identity
// tolerates reordering of unrelated siblings but registers an element that
// moves to a different parent as removed+added rather than modified; that is
// a deliberate trade-off, not a bug.
package domdiff

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/JakeFAU/sitewatch/internal/textdiff"
)

const (
	// maxDepth bounds the traversal below <body>.
	maxDepth = 10
	// minTextLen filters out elements without meaningful text.
	minTextLen = 10
	// maxSnippet caps the recorded text per element.
	maxSnippet = 200

	pathSeparator = " > "
)

// Node is one extracted element keyed by its selector path.
type Node struct {
	Path       string            `json:"path"`
	Tag        string            `json:"tag"`
	Text       string            `json:"text"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// ModifiedNode pairs the old and new text of an element whose path survived
// but whose text changed.
type ModifiedNode struct {
	Path       string  `json:"path"`
	Tag        string  `json:"tag"`
	OldText    string  `json:"old_text"`
	NewText    string  `json:"new_text"`
	Similarity float64 `json:"similarity"`
}

// Report is the structured outcome of one comparison.
type Report struct {
	Added    []Node         `json:"added"`
	Removed  []Node         `json:"removed"`
	Modified []ModifiedNode `json:"modified"`
}

// Empty reports whether the comparison found no structural difference.
func (r Report) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Modified) == 0
}

// Compare extracts the path-addressed structure of both documents and
// reports added, removed and modified elements.
func Compare(oldHTML, newHTML []byte) (Report, error) {
	oldNodes, err := Extract(oldHTML)
	if err != nil {
		return Report{}, fmt.Errorf("extract old document: %w", err)
	}
	newNodes, err := Extract(newHTML)
	if err != nil {
		return Report{}, fmt.Errorf("extract new document: %w", err)
	}

	oldByPath := byPath(oldNodes)
	newByPath := byPath(newNodes)

	// Siblings without distinguishing id/class share a path; the maps
	// collapse them, so every pass must iterate the maps, never the raw
	// lists, or a collapsed sibling gets compared against its twin.
	report := Report{}
	for path, n := range newByPath {
		if _, ok := oldByPath[path]; !ok {
			report.Added = append(report.Added, n)
		}
	}
	for path, n := range oldByPath {
		if _, ok := newByPath[path]; !ok {
			report.Removed = append(report.Removed, n)
		}
	}
	for path, oldNode := range oldByPath {
		newNode, ok := newByPath[path]
		if !ok || oldNode.Text == newNode.Text {
			continue
		}
		report.Modified = append(report.Modified, ModifiedNode{
			Path:       path,
			Tag:        newNode.Tag,
			OldText:    oldNode.Text,
			NewText:    newNode.Text,
			Similarity: textdiff.Similarity(oldNode.Text, newNode.Text),
		})
	}
	sortReport(&report)
	return report, nil
}

// Extract parses the document, drops script/style/noscript subtrees, and
// returns every element under <body> (up to the depth ceiling) that carries
// meaningful text. When paths collide the later element wins, matching the
// map-based comparison.
func Extract(doc []byte) ([]Node, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	start := findBody(root)
	if start == nil {
		start = root
	}

	type frame struct {
		node  *html.Node
		path  string
		depth int
	}

	var nodes []Node
	// Explicit stack traversal keeps the depth ceiling a visible loop
	// condition.
	stack := []frame{{node: start, path: selectorFor(start), depth: 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.node.Type == html.ElementNode {
			if text := elementText(f.node); len(text) > minTextLen {
				nodes = append(nodes, Node{
					Path:       f.path,
					Tag:        f.node.Data,
					Text:       snippet(text),
					Attributes: attributeMap(f.node),
				})
			}
		}

		if f.depth >= maxDepth {
			continue
		}
		// Children pushed in reverse so extraction order follows the
		// document.
		var children []*html.Node
		for c := f.node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || skippedTag(c.Data) {
				continue
			}
			children = append(children, c)
		}
		for i := len(children) - 1; i >= 0; i-- {
			c := children[i]
			stack = append(stack, frame{
				node:  c,
				path:  f.path + pathSeparator + selectorFor(c),
				depth: f.depth + 1,
			})
		}
	}
	return nodes, nil
}

// sortReport orders every section by path so reports are stable across the
// unordered map passes.
func sortReport(r *Report) {
	sort.Slice(r.Added, func(i, j int) bool { return r.Added[i].Path < r.Added[j].Path })
	sort.Slice(r.Removed, func(i, j int) bool { return r.Removed[i].Path < r.Removed[j].Path })
	sort.Slice(r.Modified, func(i, j int) bool { return r.Modified[i].Path < r.Modified[j].Path })
}

func byPath(nodes []Node) map[string]Node {
	m := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		m[n.Path] = n
	}
	return m
}

func findBody(root *html.Node) *html.Node {
	stack := []*html.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type == html.ElementNode && n.Data == "body" {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			stack = append(stack, c)
		}
	}
	return nil
}

// selectorFor renders one path segment: tag, optional #id, optional first
// class.
func selectorFor(n *html.Node) string {
	if n.Type != html.ElementNode {
		return ""
	}
	sel := n.Data
	if id := attr(n, "id"); id != "" {
		sel += "#" + id
	}
	if classes := strings.Fields(attr(n, "class")); len(classes) > 0 {
		sel += "." + classes[0]
	}
	return sel
}

// elementText aggregates the trimmed text content of the subtree, skipping
// script/style/noscript branches.
func elementText(n *html.Node) string {
	var chunks []string
	stack := []*html.Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.Type == html.TextNode {
			if text := strings.TrimSpace(cur.Data); text != "" {
				chunks = append(chunks, text)
			}
			continue
		}
		if cur.Type == html.ElementNode && cur != n && skippedTag(cur.Data) {
			continue
		}
		var children []*html.Node
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			children = append(children, c)
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return strings.Join(chunks, " ")
}

// snippet caps the text at maxSnippet characters, never splitting a rune.
func snippet(text string) string {
	if runes := []rune(text); len(runes) > maxSnippet {
		return string(runes[:maxSnippet])
	}
	return text
}

func attributeMap(n *html.Node) map[string]string {
	if len(n.Attr) == 0 {
		return nil
	}
	m := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		m[a.Key] = a.Val
	}
	return m
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func skippedTag(tag string) bool {
	switch tag {
	case "script", "style", "noscript":
		return true
	}
	return false
}
