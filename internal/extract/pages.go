package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/textextract/internal/storage"
)

const pageContentType = "text/markdown; charset=utf-8"

// WritePages persists one markdown artifact per page, failed pages included,
// and returns the page number to storage key map. The first storage failure
// aborts the write and fails the document.
func WritePages(ctx context.Context, store storage.ObjectStore, docID string, pages map[int]PageRecord) (map[int]string, error) {
	nums := make([]int, 0, len(pages))
	for n := range pages {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	written := make(map[int]string, len(pages))
	for _, n := range nums {
		rec := pages[n]
		key := fmt.Sprintf("%s/extracted_text/page_%04d_%s.md", docID, n, rec.Method)
		body := fmt.Sprintf("# Page %d - %s\n\n%s", n, strings.ToUpper(rec.Method), rec.Text)
		if err := store.Put(ctx, key, []byte(body), pageContentType); err != nil {
			return written, fmt.Errorf("failed to persist page %d: %w", n, err)
		}
		written[n] = key
	}
	log.Info().Str("doc_id", docID).Int("pages", len(written)).Msg("persisted page artifacts")
	return written, nil
}
