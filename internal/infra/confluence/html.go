package confluence

import (
	"strings"

	"golang.org/x/net/html"
)

// blockTags は改行区切りにするブロック要素
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "ul": true, "ol": true, "blockquote": true, "pre": true,
}

// htmlToText はConfluenceのストレージ形式HTMLをプレーンテキストに変換する。
// ブロック要素の境界は改行になり、script/style の中身は捨てられる。
// 解析できない入力は素通しせず、取れたテキストだけを返す。
func htmlToText(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.ElementNode:
			if node.Data == "script" || node.Data == "style" {
				return
			}
			if blockTags[node.Data] {
				sb.WriteString("\n")
			}
		case html.TextNode:
			if text := strings.TrimSpace(node.Data); text != "" {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	// 連続する空行と行末の空白を整える
	lines := strings.Split(sb.String(), "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, "\n")
}
