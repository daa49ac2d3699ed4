package scrape

import (
	"strings"

	"golang.org/x/net/html"
)

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// findMeta returns the content of the first <meta name="..."> with a non empty content
func findMeta(n *html.Node, name string) string {
	if n.Type == html.ElementNode && n.Data == "meta" {
		if metaName, ok := attr(n, "name"); ok && metaName == name {
			if content, ok := attr(n, "content"); ok && content != "" {
				return content
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if content := findMeta(c, name); content != "" {
			return content
		}
	}
	return ""
}

func findNodeByTag(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result := findNodeByTag(c, tag); result != nil {
			return result
		}
	}
	return nil
}

// extractTitle extracts the title from the HTML document
func extractTitle(doc *html.Node) string {
	titleNode := findNodeByTag(doc, "title")
	if titleNode == nil || titleNode.FirstChild == nil || titleNode.FirstChild.Type != html.TextNode {
		return ""
	}
	return strings.TrimSpace(titleNode.FirstChild.Data)
}
