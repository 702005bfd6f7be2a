// Package indexpipeline drives the indexing pipeline (C7): for each target
// container it pulls pages from the container facade (C4), extracts title
// and text (C5), and batch-commits topic rows into the index store (C6),
// emitting progress on the status-line side-channel as it goes.
package indexpipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	xerrors "github.com/hawkxtreme/mini-ai-1c-help/internal/errors"
	"github.com/hawkxtreme/mini-ai-1c-help/internal/extract"
	"github.com/hawkxtreme/mini-ai-1c-help/internal/hbk"
	"github.com/hawkxtreme/mini-ai-1c-help/internal/statusline"
	"github.com/hawkxtreme/mini-ai-1c-help/internal/store"
)

// fallbackTotal is the progress denominator used when no container's page
// count can be estimated (§4.7).
const fallbackTotal = 1000

// target names one of the three containers the pipeline reads, in the
// fixed processing order §5 requires: syntax, then query, then language.
type target struct {
	file     string
	category string
}

var targets = []target{
	{file: "shcntx_ru.hbk", category: "syntax"},
	{file: "shquery_ru.hbk", category: "query"},
	{file: "shlang_ru.hbk", category: "language"},
}

// Run indexes every present target container under binPath into s, tagging
// rows with version. Missing container files are skipped without error; a
// decode failure in one container is logged and the pipeline continues with
// the next one. It clears existing rows for version first, so re-running
// indexing for the same installation is idempotent, and records metadata
// and emits the ready status line only on full completion.
func Run(ctx context.Context, binPath, version string, s *store.Store, status *statusline.Writer) error {
	if err := s.ClearVersion(ctx, version); err != nil {
		status.Unavailable(err.Error())
		return err
	}

	total := estimateTotal(binPath)
	status.Indexing(0, total, "Запуск индексации...")

	var processed, committed int
	var batch []store.Topic
	var recovered []error

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.InsertBatch(ctx, batch); err != nil {
			return err
		}
		committed += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, tgt := range targets {
		path := filepath.Join(binPath, tgt.file)
		c, err := hbk.Open(path)
		if err != nil {
			status.Logf("skipping %s: %v", tgt.file, err)
			if !os.IsNotExist(err) {
				recovered = append(recovered, err)
			}
			continue
		}

		for res := range c.Pages(ctx, status) {
			if res.Err != nil {
				status.Logf("skipping page in %s: %v", tgt.file, res.Err)
				recovered = append(recovered, res.Err)
				continue
			}

			page := extract.Extract(res.Page.HTML)
			batch = append(batch, store.Topic{
				TopicID:  fmt.Sprintf("%s/%s/%s", version, tgt.category, res.Page.Name),
				Title:    page.Title,
				Content:  page.Text,
				Category: tgt.category,
				Version:  version,
			})

			if len(batch) >= store.BatchSize() {
				if err := flush(); err != nil {
					status.Unavailable(err.Error())
					return err
				}
			}

			processed++
			percent := processed * 100 / maxInt(total, 1)
			if percent > 99 {
				percent = 99
			}
			status.Indexing(percent, total, fmt.Sprintf("Обработано %d страниц...", processed))
		}
	}

	if err := flush(); err != nil {
		status.Unavailable(err.Error())
		return err
	}

	if err := s.RecordMeta(ctx, version, committed, time.Now()); err != nil {
		status.Unavailable(err.Error())
		return err
	}

	if len(recovered) > 0 {
		status.Logf("completed with recoverable errors: %v", xerrors.NewMultiError(recovered))
	}

	status.Ready(version, committed)
	return nil
}

// estimateTotal opens the first target container present and asks its
// facade for a rough page-count estimate, falling back to fallbackTotal
// when none is available or the estimate comes back zero.
func estimateTotal(binPath string) int {
	for _, tgt := range targets {
		c, err := hbk.Open(filepath.Join(binPath, tgt.file))
		if err != nil {
			continue
		}
		if n := c.EstimatePageCount(); n > 0 {
			return n
		}
		break
	}
	return fallbackTotal
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
