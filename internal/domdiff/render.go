package domdiff

import (
	"fmt"
	"html"
	"strings"
)

// maxRenderedItems bounds each section of the rendered report.
const maxRenderedItems = 20

// RenderHTML formats a Report as a standalone HTML artifact for the alerts
// directory. Rendering is presentation only; the comparison lives in
// Compare.
func RenderHTML(report Report) string {
	var b strings.Builder
	b.WriteString("<html>\n<head>\n<style>\n")
	b.WriteString("body { font-family: sans-serif; padding: 20px; }\n")
	b.WriteString(".item { padding: 10px; margin: 8px 0; border-left: 4px solid #ccc; background: #f8f9fa; }\n")
	b.WriteString(".item.added { border-left-color: #27ae60; }\n")
	b.WriteString(".item.removed { border-left-color: #e74c3c; }\n")
	b.WriteString(".item.modified { border-left-color: #f39c12; }\n")
	b.WriteString(".path { font-family: monospace; font-size: 12px; color: #7f8c8d; }\n")
	b.WriteString("</style>\n</head>\n<body>\n")
	b.WriteString("<h1>DOM Change Analysis</h1>\n")
	fmt.Fprintf(&b, "<p>%d added, %d removed, %d modified</p>\n",
		len(report.Added), len(report.Removed), len(report.Modified))

	renderNodes(&b, "Added", "added", report.Added)
	renderNodes(&b, "Removed", "removed", report.Removed)

	if len(report.Modified) > 0 {
		b.WriteString("<h2>Modified</h2>\n")
		for i, n := range report.Modified {
			if i >= maxRenderedItems {
				break
			}
			fmt.Fprintf(&b, "<div class=\"item modified\"><code>&lt;%s&gt;</code> (similarity %.1f%%)<div class=\"path\">%s</div>",
				html.EscapeString(n.Tag), n.Similarity*100, html.EscapeString(n.Path))
			fmt.Fprintf(&b, "<div><strong>Before:</strong> %s</div>", html.EscapeString(n.OldText))
			fmt.Fprintf(&b, "<div><strong>After:</strong> %s</div></div>\n", html.EscapeString(n.NewText))
		}
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func renderNodes(b *strings.Builder, heading, class string, nodes []Node) {
	if len(nodes) == 0 {
		return
	}
	fmt.Fprintf(b, "<h2>%s</h2>\n", heading)
	for i, n := range nodes {
		if i >= maxRenderedItems {
			break
		}
		fmt.Fprintf(b, "<div class=\"item %s\"><code>&lt;%s&gt;</code><div class=\"path\">%s</div><div>%s</div></div>\n",
			class, html.EscapeString(n.Tag), html.EscapeString(n.Path), html.EscapeString(n.Text))
	}
}
