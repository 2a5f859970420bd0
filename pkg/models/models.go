package models

import "time"

// Work is the structured result of parsing one fetched work page.
type Work struct {
	WorkID          string    `json:"work_id"`
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	TotalChapters   int       `json:"total_chapters"`
	ChaptersFetched int       `json:"chapters_fetched"`
	Chapters        []Chapter `json:"chapters"`
}

// Chapter holds one chapter's extracted text.
type Chapter struct {
	ChapterID    string `json:"chapter_id"`
	ChapterTitle string `json:"chapter_title"`
	Content      string `json:"content"`
}

// FailureRecord describes why a unit was abandoned, kept in the checkpoint
// so operators can distinguish server problems from content-shape changes.
type FailureRecord struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// RunSummary is emitted when a run drains, as a log line and as
// batch_summary.json. Informational only; never read back by the engine.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	Total        int       `json:"total"`
	Completed    int       `json:"completed"`
	Failed       int       `json:"failed"`
	Pending      int       `json:"pending"`
	PercentDone  float64   `json:"percent_done"`
	Interrupted  bool      `json:"interrupted"`
	FinishedAt   time.Time `json:"finished_at"`
}
