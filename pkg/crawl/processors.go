package crawl

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/Lxr713/AO3-Crawler/pkg/checkpoint"
	"github.com/Lxr713/AO3-Crawler/pkg/config"
	"github.com/Lxr713/AO3-Crawler/pkg/extract"
	"github.com/Lxr713/AO3-Crawler/pkg/fetch"
	"github.com/Lxr713/AO3-Crawler/pkg/output"
)

// WorkProcessor processes one work: fetch the full-work page, extract the
// structured result, write the per-work artifact.
type WorkProcessor struct {
	cfg     *config.AppConfig
	fetcher fetch.HTTPFetcher
	writer  *output.Writer
	log     *logrus.Entry
}

// NewWorkProcessor wires the batch-phase processor.
func NewWorkProcessor(cfg *config.AppConfig, fetcher fetch.HTTPFetcher, writer *output.Writer, log *logrus.Entry) *WorkProcessor {
	return &WorkProcessor{cfg: cfg, fetcher: fetcher, writer: writer, log: log}
}

// Process implements Processor for work units.
func (p *WorkProcessor) Process(ctx context.Context, workID string) error {
	body, err := p.fetcher.FetchWithRetry(ctx, p.cfg.WorkURL(workID))
	if err != nil {
		return err
	}

	work, err := extract.ParseWork(body, workID, p.cfg.BaseURL+"/works/"+workID)
	if err != nil {
		return err
	}

	if err := p.writer.WriteWork(work); err != nil {
		return fmt.Errorf("write_failed: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"work_id": workID, "title": work.Title, "chapters": work.ChaptersFetched,
	}).Debug("Work processed")
	return nil
}

// PageProcessor processes one search-result page: fetch it, extract linked
// work IDs and accumulate them in the discover checkpoint. Unit IDs are page
// numbers rendered as strings.
type PageProcessor struct {
	cfg     *config.AppConfig
	fetcher fetch.HTTPFetcher
	store   *checkpoint.Store
	log     *logrus.Entry
}

// NewPageProcessor wires the discover-phase processor.
func NewPageProcessor(cfg *config.AppConfig, fetcher fetch.HTTPFetcher, store *checkpoint.Store, log *logrus.Entry) *PageProcessor {
	return &PageProcessor{cfg: cfg, fetcher: fetcher, store: store, log: log}
}

// Process implements Processor for search-page units.
func (p *PageProcessor) Process(ctx context.Context, pageID string) error {
	page, err := strconv.Atoi(pageID)
	if err != nil {
		return fmt.Errorf("bad page id %q: %w", pageID, err)
	}

	body, err := p.fetcher.FetchWithRetry(ctx, extract.PageURL(p.cfg.SearchURL, page))
	if err != nil {
		return err
	}

	// A page with no work links is still a completed page (past the last
	// result, or an empty filter), not a failure.
	ids := extract.WorkIDs(body)
	added := p.store.AddWorkIDs(ids)
	p.log.WithFields(logrus.Fields{"page": page, "found": len(ids), "new": added}).Debug("Page processed")
	return nil
}

// PageRange enumerates the discover phase's unit IDs: start..end inclusive.
func PageRange(start, end int) []string {
	if end < start {
		return nil
	}
	ids := make([]string, 0, end-start+1)
	for p := start; p <= end; p++ {
		ids = append(ids, strconv.Itoa(p))
	}
	return ids
}
