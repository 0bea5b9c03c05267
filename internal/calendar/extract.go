package calendar

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

const (
	// DateMarkerClass marks each pickup date heading on the calendar page.
	DateMarkerClass = "wp-block-site-pickup-calendar__date"
	// WasteIconPrefix prefixes the class naming a waste stream icon.
	WasteIconPrefix = "waste-icon--"
)

// Association is one pickup date heading and the waste types listed under it.
// Types is sorted and free of duplicates; it is empty when the heading had no
// recognisable icons.
type Association struct {
	Date  Date
	Types []string
}

// The calendar page closes its <h3> date headings with </h1>.
var mismatchedHeadingRe = regexp.MustCompile(`(?s)<h3([^>]*)>(.*?)</h1>`)

func repairHeadings(markup string) string {
	return mismatchedHeadingRe.ReplaceAllString(markup, `<h3$1>$2</h3>`)
}

// Extract parses the calendar detail page and returns one Association per date
// heading, in page order. Icons are collected from the siblings that follow a
// heading, up to the next heading.
func Extract(markup string, ref Date) ([]Association, error) {
	doc, err := html.Parse(strings.NewReader(repairHeadings(markup)))
	if err != nil {
		return nil, fmt.Errorf("parse calendar page: %w", err)
	}

	var headings []*html.Node
	walk(doc, func(n *html.Node) bool {
		if hasClass(n, DateMarkerClass) {
			headings = append(headings, n)
			return false
		}
		return true
	})
	if len(headings) == 0 {
		return nil, ErrNoScheduleFound
	}

	out := make([]Association, 0, len(headings))
	for _, h := range headings {
		text := nodeText(h)
		d, err := ParseNorwegianDate(text, ref)
		if err != nil {
			return nil, fmt.Errorf("pickup heading: %w", err)
		}
		out = append(out, Association{Date: d, Types: typesAfter(h)})
	}
	return out, nil
}

// typesAfter collects waste types from the siblings following heading until a
// sibling that is, or contains, another date heading.
func typesAfter(heading *html.Node) []string {
	seen := make(map[string]struct{})
	for s := heading.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && containsMarker(s) {
			break
		}
		walk(s, func(n *html.Node) bool {
			for _, t := range wasteTypes(n) {
				seen[t] = struct{}{}
			}
			return true
		})
	}

	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func containsMarker(n *html.Node) bool {
	found := false
	walk(n, func(c *html.Node) bool {
		if hasClass(c, DateMarkerClass) {
			found = true
		}
		return !found
	})
	return found
}

// wasteTypes returns the <type> of every waste-icon--<type> class on n.
func wasteTypes(n *html.Node) []string {
	var out []string
	for _, c := range classes(n) {
		if t, ok := strings.CutPrefix(c, WasteIconPrefix); ok && t != "" {
			out = append(out, t)
		}
	}
	return out
}

// walk visits n and its descendants depth-first in document order. Returning
// false from fn skips the children of the current node.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func classes(n *html.Node) []string {
	if n.Type != html.ElementNode {
		return nil
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == "class" {
			return strings.Fields(a.Val)
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range classes(n) {
		if c == class {
			return true
		}
	}
	return false
}

// nodeText returns the text content of n with whitespace collapsed.
func nodeText(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
		return true
	})
	return strings.Join(strings.Fields(b.String()), " ")
}
