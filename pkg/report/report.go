// Copyright 2025 the assetman authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package report aggregates storage usage across catalog subtrees: per-asset
// sizes rolled up into container totals, with human-readable formatting and
// CSV export.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"assetman/pkg/catalog"
	"assetman/pkg/walker"
)

// Row is the usage summary of one asset. For containers, SizeBytes and Items
// cover the whole subtree underneath (the container itself counts as one
// item).
type Row struct {
	Path      string
	Type      catalog.AssetType
	SizeBytes int64
	Items     int
}

// Usage is the aggregated result of one subtree scan
type Usage struct {
	Root string
	// Rows holds one entry per discovered asset, sorted by path
	Rows []Row
	// TotalBytes and TotalItems cover every discovered asset
	TotalBytes int64
	TotalItems int
	// Unreachable counts containers whose children could not be listed;
	// their subtrees are missing from the totals
	Unreachable int
}

// Scanner walks subtrees and rolls leaf sizes up into their ancestors
type Scanner struct {
	client catalog.Client
	walker *walker.Walker
	retry  catalog.RetryPolicy
}

// ScannerOption customizes a Scanner
type ScannerOption func(*Scanner)

// WithRetryPolicy overrides the backoff applied to scan and quota calls
func WithRetryPolicy(p catalog.RetryPolicy) ScannerOption {
	return func(s *Scanner) {
		s.retry = p
	}
}

// NewScanner builds a scanner over the catalog client
func NewScanner(client catalog.Client, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		client: client,
		retry:  catalog.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.walker = walker.New(client, walker.WithRetryPolicy(s.retry))
	return s
}

// Scan walks the subtree under root (wildcards allowed) and returns its
// usage. Listing failures are tolerated: the affected subtree is excluded
// from the totals and counted in Unreachable.
func (s *Scanner) Scan(ctx context.Context, root string) (*Usage, error) {
	items, err := s.walker.Walk(ctx, root)
	if err != nil {
		return nil, err
	}

	usage := &Usage{Root: root}
	sizes := map[string]*Row{}
	for item := range items {
		if item.Err != nil {
			usage.Unreachable++
			continue
		}
		node := item.Node
		sizes[node.Path] = &Row{Path: node.Path, Type: node.Type, SizeBytes: node.SizeBytes, Items: 1}
		usage.TotalBytes += node.SizeBytes
		usage.TotalItems++

		// Credit the size to every ancestor already discovered. The walk
		// yields ancestors first, so they are always present.
		for p := catalog.ParentPath(node.Path); p != ""; p = catalog.ParentPath(p) {
			anc, ok := sizes[p]
			if !ok {
				break
			}
			anc.SizeBytes += node.SizeBytes
			anc.Items++
		}
	}

	for _, row := range sizes {
		usage.Rows = append(usage.Rows, *row)
	}
	sort.Slice(usage.Rows, func(i, j int) bool { return usage.Rows[i].Path < usage.Rows[j].Path })

	zerolog.Ctx(ctx).Info().
		Str("root", root).
		Int("items", usage.TotalItems).
		Int64("bytes", usage.TotalBytes).
		Int("unreachable", usage.Unreachable).
		Msg("usage scan finished")
	return usage, nil
}

// WriteCSV exports the usage rows as CSV, one row per asset
func (u *Usage) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"path", "type", "size_bytes", "items"}); err != nil {
		return errors.Errorf("writing usage header: %w", err)
	}
	for _, row := range u.Rows {
		rec := []string{
			row.Path,
			row.Type.String(),
			strconv.FormatInt(row.SizeBytes, 10),
			strconv.Itoa(row.Items),
		}
		if err := cw.Write(rec); err != nil {
			return errors.Errorf("writing usage row for %s: %w", row.Path, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Errorf("flushing usage report: %w", err)
	}
	return nil
}

// Quota fetches the usage limits of an asset root
func (s *Scanner) Quota(ctx context.Context, root string) (*catalog.Quota, error) {
	var q *catalog.Quota
	_, err := catalog.Retry(ctx, s.retry, func() error {
		var gerr error
		q, gerr = s.client.GetQuota(ctx, root)
		return gerr
	})
	if err != nil {
		return nil, errors.Errorf("fetching quota for %s: %w", root, err)
	}
	return q, nil
}

// FormatQuota renders usage-against-limit lines for display. Dimensions the
// catalog reports no limit for render without a percentage.
func FormatQuota(q *catalog.Quota) []string {
	return []string{
		"assets: " + usageLine(strconv.FormatInt(q.AssetCount, 10), strconv.FormatInt(q.MaxAssets, 10), q.AssetCount, q.MaxAssets),
		"storage: " + usageLine(HumanSize(q.SizeBytes), HumanSize(q.MaxSizeBytes), q.SizeBytes, q.MaxSizeBytes),
	}
}

func usageLine(used, limit string, usedN, limitN int64) string {
	if limitN <= 0 {
		return used + " used (no limit)"
	}
	pct := float64(usedN) / float64(limitN) * 100
	return fmt.Sprintf("%s of %s (%.1f%%)", used, limit, pct)
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// HumanSize renders a byte count with a binary-free 1000 step, two decimals,
// trailing zeros trimmed: 1500 -> "1.5 KB", 1000000 -> "1 MB".
func HumanSize(bytes int64) string {
	size := float64(bytes)
	unit := 0
	for size >= 1000 && unit < len(sizeUnits)-1 {
		size /= 1000
		unit++
	}
	formatted := strconv.FormatFloat(size, 'f', 2, 64)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimSuffix(formatted, ".")
	return fmt.Sprintf("%s %s", formatted, sizeUnits[unit])
}
