// Package extract parses fetched HTML into the pieces the change-detection
// pipeline fingerprints: title, visible text, and classified links.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/sitewatch/internal/monitor"
)

const maxAnchorText = 100

// Content is the visible payload of one HTML document.
type Content struct {
	Title string
	Text  string
}

// Parse strips script/style/noscript content and returns the document title
// and normalized visible text. Malformed markup degrades to whatever could
// be parsed rather than failing.
func Parse(body []byte) (Content, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Content{}, fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = "No Title"
	}

	return Content{
		Title: title,
		Text:  visibleText(doc),
	}, nil
}

// visibleText walks the document's text nodes and joins the trimmed chunks
// with newlines, giving block-level separation independent of markup noise.
func visibleText(doc *goquery.Document) string {
	var chunks []string
	for _, root := range doc.Nodes {
		stack := []*html.Node{root}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if n.Type == html.TextNode {
				if text := strings.TrimSpace(n.Data); text != "" {
					chunks = append(chunks, text)
				}
				continue
			}
			// Push children in reverse so traversal stays in document order.
			var children []*html.Node
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				children = append(children, c)
			}
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, children[i])
			}
		}
	}
	return strings.Join(chunks, "\n")
}

// ClassifyLinks buckets every anchor in the document into internal, external
// and file links relative to baseURL. Bare anchors and javascript links are
// skipped; anchor text is trimmed and capped.
func ClassifyLinks(body []byte, baseURL string) (monitor.LinkClassification, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return monitor.LinkClassification{}, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return monitor.LinkClassification{}, fmt.Errorf("parse base url: %w", err)
	}

	classification := monitor.LinkClassification{
		Internal: []monitor.Link{},
		External: []monitor.Link{},
		Files:    []monitor.Link{},
	}
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}
		normalized, ok := resolveAndNormalize(base, href)
		if !ok {
			return
		}
		text := anchorText(sel)
		switch {
		case monitor.IsFileURL(normalized):
			classification.Files = append(classification.Files, monitor.Link{
				URL:  normalized,
				Text: text,
				Type: monitor.FileExtension(normalized),
			})
		case monitor.SameDomain(normalized, baseURL):
			classification.Internal = append(classification.Internal, monitor.Link{
				URL:  normalized,
				Text: text,
			})
		default:
			classification.External = append(classification.External, monitor.Link{
				URL:  normalized,
				Text: text,
				Host: linkHost(normalized),
			})
		}
	})
	return classification, nil
}

// DiscoverLinks returns the unique, normalized same-domain URLs linked from
// the document, for frontier expansion. Anchors, javascript and mailto links
// are excluded.
func DiscoverLinks(body []byte, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}
		normalized, ok := resolveAndNormalize(base, href)
		if !ok {
			return
		}
		if !monitor.SameDomain(normalized, baseURL) {
			return
		}
		if _, dup := seen[normalized]; dup {
			return
		}
		seen[normalized] = struct{}{}
		links = append(links, normalized)
	})
	return links, nil
}

func resolveAndNormalize(base *url.URL, href string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	absolute := base.ResolveReference(ref)
	if absolute.Scheme != "http" && absolute.Scheme != "https" {
		return "", false
	}
	normalized, err := monitor.NormalizeURL(absolute.String())
	if err != nil {
		return "", false
	}
	return normalized, true
}

// anchorText collapses the anchor's whitespace and caps it at maxAnchorText
// characters, never splitting a rune.
func anchorText(sel *goquery.Selection) string {
	text := strings.Join(strings.Fields(sel.Text()), " ")
	if runes := []rune(text); len(runes) > maxAnchorText {
		text = string(runes[:maxAnchorText])
	}
	return text
}

func linkHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
