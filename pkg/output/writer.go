package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Lxr713/AO3-Crawler/pkg/models"
	"github.com/Lxr713/AO3-Crawler/pkg/utils"
)

// Writer emits per-unit artifacts and run-level files under a single output
// directory. Each work lands in its own deterministically named file, so
// writes from concurrent units never contend.
type Writer struct {
	dir string
	log *logrus.Entry
}

// NewWriter creates a Writer rooted at dir, creating the directory if needed.
func NewWriter(dir string, log *logrus.Entry) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output dir %s: %w", dir, err)
	}
	return &Writer{dir: dir, log: log}, nil
}

// WorkPath returns the artifact path for a work ID.
func (w *Writer) WorkPath(workID string) string {
	return filepath.Join(w.dir, "ao3_"+utils.SanitizeFilename(workID)+".json")
}

// WriteWork writes one work's structured result as indented JSON.
func (w *Writer) WriteWork(work *models.Work) error {
	data, err := json.MarshalIndent(work, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal work %s: %w", work.WorkID, err)
	}
	path := w.WorkPath(work.WorkID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write work %s: %w", work.WorkID, err)
	}
	w.log.WithFields(logrus.Fields{"work_id": work.WorkID, "path": path}).Debug("Work artifact written")
	return nil
}

// WriteSummary writes the run summary next to the per-work artifacts.
func (w *Writer) WriteSummary(summary models.RunSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	path := filepath.Join(w.dir, "batch_summary.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	w.log.WithField("path", path).Info("Run summary written")
	return nil
}

// WriteIDList writes the discovered work IDs one per line.
func (w *Writer) WriteIDList(filename string, ids []string) error {
	path := filepath.Join(w.dir, filename)
	if err := os.WriteFile(path, []byte(strings.Join(ids, "\n")+"\n"), 0644); err != nil {
		return fmt.Errorf("write id list: %w", err)
	}
	w.log.WithFields(logrus.Fields{"path": path, "count": len(ids)}).Info("Work ID list written")
	return nil
}
