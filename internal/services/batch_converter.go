package services

import (
	"context"
	"fmt"
	"path"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchConverter converts every file of a session with bounded parallelism.
// A single failing file fails the whole batch.
type BatchConverter struct {
	store    SessionStore
	codec    Codec
	workers  int
	observer Observer
}

// NewBatchConverter creates a converter. workers <= 0 uses the number of CPUs.
func NewBatchConverter(store SessionStore, codec Codec, workers int, observer Observer) *BatchConverter {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &BatchConverter{
		store:    store,
		codec:    codec,
		workers:  workers,
		observer: observer,
	}
}

// ConvertSession converts all files stored under sessionID. Results keep upload
// order regardless of which conversion finishes first.
func (b *BatchConverter) ConvertSession(ctx context.Context, sessionID string) ([]ConversionResult, error) {
	files, err := b.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return b.ConvertFiles(ctx, files)
}

// ConvertFiles converts files in parallel and returns results in input order
func (b *BatchConverter) ConvertFiles(ctx context.Context, files []StoredFile) ([]ConversionResult, error) {
	results := make([]ConversionResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i, file := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			res, err := b.codec.Convert(file.Content, file.Filename)
			b.observer.ObserveConversion(b.codec.Format(), time.Since(start), err)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A cancelled parent stops scheduling without any task reporting an error.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("conversion aborted: %w", err)
	}

	dedupeOutputNames(results)
	return results, nil
}

// dedupeOutputNames renames repeated entries in place: a.webp, a-1.webp, a-2.webp.
func dedupeOutputNames(results []ConversionResult) {
	taken := make(map[string]bool, len(results))
	for _, r := range results {
		taken[r.OutputName] = false
	}

	for i := range results {
		name := results[i].OutputName
		if !taken[name] {
			taken[name] = true
			continue
		}
		ext := path.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		for n := 1; ; n++ {
			candidate := fmt.Sprintf("%s-%d%s", stem, n, ext)
			if _, exists := taken[candidate]; !exists {
				taken[candidate] = true
				results[i].OutputName = candidate
				break
			}
		}
	}
}
