package metadata

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// previewPrefixes lists the meta name/property prefixes that are kept.
var previewPrefixes = []string{"og:", "twitter:", "article:", "product:", "al:"}

// plainMetaNames are kept verbatim and stored under "page:<name>".
var plainMetaNames = map[string]bool{
	"description": true,
	"author":      true,
	"keywords":    true,
}

// Extract parses an HTML document and returns its preview metadata.
//
// Open Graph, Twitter card and a few platform card tags are collected from
// <meta property|name=... content=...>. The document title is stored as
// page:title and the canonical link as page:canonical. The first occurrence
// of a field wins.
func Extract(r io.Reader) (Preview, error) {
	root, err := html.Parse(r)
	if err != nil {
		return Preview{}, fmt.Errorf("failed to parse html: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	fields := make(map[string]string)
	set := func(name, value string) {
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			return
		}
		if _, ok := fields[name]; !ok {
			fields[name] = value
		}
	}

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content, ok := s.Attr("content")
		if !ok {
			return
		}
		name := strings.ToLower(strings.TrimSpace(s.AttrOr("property", s.AttrOr("name", ""))))
		switch {
		case hasPreviewPrefix(name):
			set(name, content)
		case plainMetaNames[name]:
			set("page:"+name, content)
		}
	})

	set(FieldPageTitle, doc.Find("title").First().Text())
	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		set("page:canonical", href)
	}
	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		set("page:locale", lang)
	}

	return Preview{
		Fields:             fields,
		ContainsMeetAIMode: strings.Contains(doc.Find("body").Text(), MeetAIModeMarker),
	}, nil
}

func hasPreviewPrefix(name string) bool {
	for _, p := range previewPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
