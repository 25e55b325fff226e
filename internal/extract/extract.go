package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Select returns the trimmed text of every element matching selector, skipping empty matches.
func Select(html, selector string) ([]string, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, errors.New("selector is empty")
	}

	doc, err := parse(html)
	if err != nil {
		return nil, err
	}

	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out, nil
}

// Title returns og:title, falling back to the <title> element.
func Title(html string) (string, error) {
	doc, err := parse(html)
	if err != nil {
		return "", err
	}

	if node := doc.Find(`meta[property="og:title"]`).First(); node.Length() > 0 {
		if val, ok := node.Attr("content"); ok && strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val), nil
		}
	}
	return strings.TrimSpace(doc.Find("title").First().Text()), nil
}

func parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}
