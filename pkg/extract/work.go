package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Lxr713/AO3-Crawler/pkg/models"
	"github.com/Lxr713/AO3-Crawler/pkg/utils"
)

var (
	chapterIDRe    = regexp.MustCompile(`^chapter-(\d+)$`)
	chapterCountRe = regexp.MustCompile(`(\d+)/(\d+)`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// ParseWork extracts the structured result from a fetched full-work page.
// Returns utils.ErrParse when the body is not recognizable as a work (e.g. a
// challenge or error page served with status 200), so the orchestrator can
// record it distinctly from fetch failures.
func ParseWork(body []byte, workID, workURL string) (*models.Work, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: HTML: %w", utils.ErrParse, err)
	}

	title := cleanText(doc.Find("h2.title").First().Text())
	author := extractAuthor(doc)
	chapters := extractChapters(doc)

	if title == "" && len(chapters) == 0 {
		return nil, fmt.Errorf("%w: no recognizable work content", utils.ErrParse)
	}

	totalChapters := len(chapters)
	// The stats block reports "fetched/total" (e.g. "3/10", "3/?"); prefer a
	// parseable total over the fetched count.
	if m := chapterCountRe.FindStringSubmatch(doc.Find("dd.chapters").First().Text()); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil && n > 0 {
			totalChapters = n
		}
	}
	if totalChapters == 0 {
		totalChapters = 1
	}

	return &models.Work{
		WorkID:          workID,
		URL:             workURL,
		Title:           title,
		Author:          author,
		TotalChapters:   totalChapters,
		ChaptersFetched: len(chapters),
		Chapters:        chapters,
	}, nil
}

func extractAuthor(doc *goquery.Document) string {
	for _, sel := range []string{`a[rel="author"]`, "a.author", "h3.byline a"} {
		if author := cleanText(doc.Find(sel).First().Text()); author != "" {
			return author
		}
	}
	return ""
}

// extractChapters walks the chapter anchors of a full-work view. Single
// chapter works have no chapter anchors, so it falls back to treating each
// userstuff block as one chapter.
func extractChapters(doc *goquery.Document) []models.Chapter {
	var chapters []models.Chapter

	doc.Find("[id^=chapter-]").Each(func(_ int, sel *goquery.Selection) {
		id, _ := sel.Attr("id")
		m := chapterIDRe.FindStringSubmatch(id)
		if m == nil {
			return
		}
		chapterID := m[1]

		title := ""
		for _, hsel := range []string{"h3", "h4"} {
			if t := cleanText(sel.Find(hsel).First().Text()); t != "" {
				title = t
				break
			}
		}
		if title == "" {
			title = "Chapter " + chapterID
		}

		content := cleanText(sel.Find("div.userstuff").First().Text())
		if content == "" {
			return
		}
		chapters = append(chapters, models.Chapter{
			ChapterID:    chapterID,
			ChapterTitle: title,
			Content:      content,
		})
	})

	if len(chapters) > 0 {
		return chapters
	}

	doc.Find("div.userstuff").Each(func(i int, sel *goquery.Selection) {
		content := cleanText(sel.Text())
		if content == "" {
			return
		}
		n := strconv.Itoa(i + 1)
		chapters = append(chapters, models.Chapter{
			ChapterID:    n,
			ChapterTitle: "Chapter " + n,
			Content:      content,
		})
	})

	return chapters
}

func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
