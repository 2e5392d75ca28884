package crawler

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// titleSelectors are tried in priority order; the first match with a
// non-trivial text wins. The journal marks Korean titles with .tit_ko and
// English ones with .tit.
var titleSelectors = []string{".tit_ko", ".tit"}

const (
	minTitleRunes         = 5
	bodyContainerSelector = "div.contents div.articleCon"
	sectionHeaderSelector = "h4.link-target"
)

// Article is the structured result of extracting a journal page.
type Article struct {
	Title string
	Body  string
}

// ExtractArticle locates the title and the labeled body sections of a journal
// page. Absence of the expected structure fails extraction; no other region
// of the page is consulted.
func ExtractArticle(doc *goquery.Document) (*Article, error) {
	var title string
	for _, selector := range titleSelectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if utf8.RuneCountInString(text) > minTitleRunes {
			title = text
			log.Debug().Str("selector", selector).Str("title", title).Msg("Found article title")
			break
		}
	}
	if title == "" {
		return nil, ErrTitleNotFound
	}

	container := doc.Find(bodyContainerSelector).First()
	if container.Length() == 0 {
		return nil, ErrBodyNotFound
	}

	var sections []string
	container.Find(sectionHeaderSelector).Each(func(_ int, header *goquery.Selection) {
		sectionTitle := strings.TrimSpace(header.Text())
		data := header.NextAllFiltered("dd").First()
		if data.Length() == 0 {
			return
		}
		sectionText := strings.TrimSpace(data.Text())
		sections = append(sections, fmt.Sprintf("[%s]\n%s", sectionTitle, sectionText))
	})

	body := strings.Join(sections, "\n\n")
	if body == "" {
		return nil, ErrEmptyBody
	}

	return &Article{Title: title, Body: body}, nil
}
