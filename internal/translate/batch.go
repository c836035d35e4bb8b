package translate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/ewriter/internal/logging"
	"github.com/ziadkadry99/ewriter/internal/settings"
)

// Progress receives batch progress updates.
type Progress interface {
	Start(total int)
	Update(current int, message string)
	Fail(paragraph int, err error)
	Finish()
}

var blankLines = regexp.MustCompile(`\n[ \t\r]*\n`)

// SplitParagraphs splits text on blank lines and drops empty paragraphs.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range blankLines.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TranslateBatch translates paragraphs with at most workers in flight and
// returns one Result per paragraph, in input order. A paragraph failure is
// recorded in its Result; a missing API key stops the batch and is returned.
func (d *Dispatcher) TranslateBatch(ctx context.Context, paragraphs []string, style *settings.Style, workers int, progress Progress) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]Result, len(paragraphs))

	progress.Start(len(paragraphs))
	defer progress.Finish()

	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, text := range paragraphs {
		g.Go(func() error {
			out, err := d.TranslateErr(gctx, Request{Text: text, Style: style})
			var cfgErr *ConfigurationError
			if errors.As(err, &cfgErr) {
				return err
			}
			if err != nil {
				logging.FromContext(ctx).Warn().Err(err).Int("paragraph", i+1).Msg("paragraph translation failed")
				results[i] = ResultFromError(err)
			} else {
				results[i] = Success(out)
			}

			mu.Lock()
			if err != nil {
				progress.Fail(i+1, err)
			}
			done++
			progress.Update(done, fmt.Sprintf("paragraph %d", i+1))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
