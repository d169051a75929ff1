package services

import (
	"strings"
	"unicode/utf8"

	"github.com/inkpress/apiserver/types"
	"golang.org/x/net/html"
)

// excerptFromHTML returns the visible text of an HTML fragment with
// whitespace collapsed, cut to types.MaxExcerptLength characters.
func excerptFromHTML(content string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(content))
	var b strings.Builder
	skip := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return truncateExcerpt(strings.Join(strings.Fields(b.String()), " "))
		case html.StartTagToken:
			if isHiddenElement(tokenizer) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			if isHiddenElement(tokenizer) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(tokenizer.Text())
			}
		}
	}
}

func isHiddenElement(tokenizer *html.Tokenizer) bool {
	name, _ := tokenizer.TagName()
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}

func truncateExcerpt(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= types.MaxExcerptLength {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:types.MaxExcerptLength]))
}
