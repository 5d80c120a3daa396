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

package report_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetman/pkg/catalog"
	"assetman/pkg/catalog/catalogtest"
	"assetman/pkg/report"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func fastRetry() report.ScannerOption {
	return report.WithRetryPolicy(catalog.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
	})
}

func seedSized(f *catalogtest.Fake, path string, typ catalog.AssetType, size int64) {
	f.Seed(path, typ)
	f.SeedAssetSize(path, size)
}

func TestScanRollsUpSizes(t *testing.T) {
	fake := catalogtest.NewFake()
	seedSized(fake, "p/a", catalog.TypeFolder, 0)
	seedSized(fake, "p/a/coll", catalog.TypeImageCollection, 0)
	seedSized(fake, "p/a/coll/img1", catalog.TypeImage, 1000)
	seedSized(fake, "p/a/coll/img2", catalog.TypeImage, 500)
	seedSized(fake, "p/a/tbl", catalog.TypeTable, 250)

	scanner := report.NewScanner(fake, fastRetry())
	usage, err := scanner.Scan(testContext(t), "p/a")
	require.NoError(t, err)

	assert.Equal(t, int64(1750), usage.TotalBytes)
	assert.Equal(t, 5, usage.TotalItems)
	assert.Equal(t, 0, usage.Unreachable)

	byPath := map[string]report.Row{}
	for _, row := range usage.Rows {
		byPath[row.Path] = row
	}
	assert.Equal(t, int64(1500), byPath["p/a/coll"].SizeBytes)
	assert.Equal(t, 3, byPath["p/a/coll"].Items)
	assert.Equal(t, int64(1750), byPath["p/a"].SizeBytes)
	assert.Equal(t, 5, byPath["p/a"].Items)
}

func TestScanToleratesUnreachableSubtree(t *testing.T) {
	fake := catalogtest.NewFake()
	seedSized(fake, "p/a", catalog.TypeFolder, 0)
	seedSized(fake, "p/a/coll", catalog.TypeImageCollection, 0)
	seedSized(fake, "p/a/coll/img", catalog.TypeImage, 1000)
	seedSized(fake, "p/a/tbl", catalog.TypeTable, 250)
	fake.FailWith("listAssets", "p/a/coll",
		catalog.NewError(catalog.KindTransient, "listAssets", "p/a/coll", nil))

	scanner := report.NewScanner(fake, fastRetry())
	usage, err := scanner.Scan(testContext(t), "p/a")
	require.NoError(t, err)

	assert.Equal(t, 1, usage.Unreachable)
	assert.Equal(t, int64(250), usage.TotalBytes)
	assert.Equal(t, 3, usage.TotalItems)
}

func TestWriteCSV(t *testing.T) {
	fake := catalogtest.NewFake()
	seedSized(fake, "p/a", catalog.TypeFolder, 0)
	seedSized(fake, "p/a/img", catalog.TypeImage, 42)

	scanner := report.NewScanner(fake, fastRetry())
	usage, err := scanner.Scan(testContext(t), "p/a")
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, usage.WriteCSV(&sb))

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "path,type,size_bytes,items", lines[0])
	assert.Equal(t, "p/a,FOLDER,42,2", lines[1])
	assert.Equal(t, "p/a/img,IMAGE,42,1", lines[2])
}

func TestQuota(t *testing.T) {
	fake := catalogtest.NewFake()
	fake.SeedQuota("projects/demo/assets", catalog.Quota{
		AssetCount:   1200,
		MaxAssets:    10000,
		SizeBytes:    1500000000,
		MaxSizeBytes: 250000000000,
	})

	scanner := report.NewScanner(fake, fastRetry())
	quota, err := scanner.Quota(testContext(t), "projects/demo/assets")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), quota.AssetCount)
	assert.Equal(t, int64(250000000000), quota.MaxSizeBytes)

	_, err = scanner.Quota(testContext(t), "projects/other/assets")
	require.Error(t, err)
	assert.True(t, catalog.IsNotFound(err))
}

func TestFormatQuota(t *testing.T) {
	lines := report.FormatQuota(&catalog.Quota{
		AssetCount:   1200,
		MaxAssets:    10000,
		SizeBytes:    1500000000,
		MaxSizeBytes: 250000000000,
	})
	require.Len(t, lines, 2)
	assert.Equal(t, "assets: 1200 of 10000 (12.0%)", lines[0])
	assert.Equal(t, "storage: 1.5 GB of 250 GB (0.6%)", lines[1])

	// No limit reported for either dimension
	lines = report.FormatQuota(&catalog.Quota{AssetCount: 7, SizeBytes: 2000})
	assert.Equal(t, "assets: 7 used (no limit)", lines[0])
	assert.Equal(t, "storage: 2 KB used (no limit)", lines[1])
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{999, "999 B"},
		{1000, "1 KB"},
		{1500, "1.5 KB"},
		{1024, "1.02 KB"},
		{1000000, "1 MB"},
		{2500000000, "2.5 GB"},
		{1000000000000, "1 TB"},
		{3141500000000000, "3.14 PB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, report.HumanSize(tt.in), "%d bytes", tt.in)
	}
}
