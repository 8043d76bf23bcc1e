package main

import (
	"bufio"
	"context"
	"math/bits"
	"os"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/vitrine/internal/domain/coupon"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	minCodeLen    = 3
	maxCodeLen    = 32
	// maxFiles bounds the file bitmask.
	maxFiles = 64
)

// validCode reports whether a normalized code may be stored.
func validCode(code string) bool {
	if len(code) < minCodeLen || len(code) > maxCodeLen {
		return false
	}
	for _, r := range code {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// streamCodes calls fn with every valid normalized code of a gzip file until
// fn returns false.
func streamCodes(ctx context.Context, path string, fn func(code string) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		code := coupon.NormalizeCode(scanner.Text())
		if !validCode(code) {
			continue
		}
		if !fn(code) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

// buildBloomFilters creates one bloom filter per file, concurrently.
func buildBloomFilters(ctx context.Context, lg *zap.Logger, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			var count uint64
			if err := streamCodes(ctx, path, func(code string) bool {
				filter.AddString(code)
				count++
				if count%progressEvery == 0 {
					lg.Info("Pass 1 progress", zap.String("file", path), zap.Uint64("codes", count))
				}
				return true
			}); err != nil {
				return errors.Wrapf(err, "build filter for %s", path)
			}
			lg.Info("Pass 1 complete", zap.String("file", path), zap.Uint64("codes", count))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findSharedCodes re-streams each file and keeps codes that other files'
// filters may contain. Merging the per-file bitmasks removes bloom false
// positives: a code is returned only if it was read from two or more files.
func findSharedCodes(ctx context.Context, lg *zap.Logger, files []string, filters []*bloom.BloomFilter) (map[string]uint, error) {
	results := make([]map[string]uint, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			candidates := make(map[string]uint)
			fileBit := uint(1) << uint(i)
			if err := streamCodes(ctx, path, func(code string) bool {
				for j, f := range filters {
					if j != i && f.TestString(code) {
						candidates[code] |= fileBit
						break
					}
				}
				return true
			}); err != nil {
				return errors.Wrapf(err, "scan %s for shared codes", path)
			}
			lg.Info("Pass 2 complete", zap.String("file", path), zap.Int("candidates", len(candidates)))
			results[i] = candidates
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, r := range results {
		for code, mask := range r {
			merged[code] |= mask
		}
	}
	for code, mask := range merged {
		if bits.OnesCount(mask) < 2 {
			delete(merged, code)
		}
	}
	return merged, nil
}
