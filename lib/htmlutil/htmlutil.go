package htmlutil

import (
	"bytes"

	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer, false)
	return buffer.String()
}

// like GetText but <br> elements become newlines, which is how the
// portal separates the lines inside a timetable cell
func GetTextWithBreaks(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer, true)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer, breaks bool) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	if breaks && node.Type == html.ElementNode && node.Data == "br" {
		buffer.WriteString("\n")
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer, breaks)
		child = child.NextSibling
	}
}
