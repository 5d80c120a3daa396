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

package batch_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetman/pkg/batch"
	"assetman/pkg/catalog"
	"assetman/pkg/catalog/catalogtest"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func newRunner(fake *catalogtest.Fake) *batch.Runner {
	return batch.NewRunner(fake,
		batch.WithMaxParallel(4),
		batch.WithRetryPolicy(catalog.RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    2 * time.Millisecond,
		}),
	)
}

func checkAccounting(t *testing.T, r *batch.Report) {
	t.Helper()
	assert.Equal(t, r.Total, r.Succeeded+r.Failed+r.Skipped,
		"accounting identity violated")
}

// --- delete ---

func TestDeleteRemovesChildrenBeforeParents(t *testing.T) {
	fake := catalogtest.NewFake()
	fake.Seed("p/a", catalog.TypeFolder).
		Seed("p/a/b", catalog.TypeImageCollection).
		Seed("p/a/b/c", catalog.TypeImage)

	report, err := newRunner(fake).Run(testContext(t), batch.NewRequest(batch.OpDelete, "p/a"))
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Succeeded)
	checkAccounting(t, report)

	assert.Equal(t, []string{"p/a/b/c", "p/a/b", "p/a"}, fake.CallsFor("deleteAsset"))
	assert.False(t, fake.Exists("p/a"))
}

func TestDeleteStuckChildKeepsAncestors(t *testing.T) {
	fake := catalogtest.NewFake()
	fake.Seed("p/a", catalog.TypeFolder).
		Seed("p/a/b", catalog.TypeImageCollection).
		Seed("p/a/b/c", catalog.TypeImage).
		Seed("p/a/d", catalog.TypeImage)
	fake.FailWith("deleteAsset", "p/a/b/c",
		catalog.NewError(catalog.KindPermissionDenied, "deleteAsset", "p/a/b/c", nil))

	report, err := newRunner(fake).Run(testContext(t), batch.NewRequest(batch.OpDelete, "p/a"))
	require.NoError(t, err)

	// c fails, so b is still non-empty and fails, so a fails; d goes
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 3, report.Failed)
	checkAccounting(t, report)

	assert.True(t, fake.Exists("p/a"))
	assert.True(t, fake.Exists("p/a/b"))
	assert.True(t, fake.Exists("p/a/b/c"))
	assert.False(t, fake.Exists("p/a/d"))
}

func TestDeleteReportsPlannedTotal(t *testing.T) {
	fake := catalogtest.NewFake()
	fake.Seed("p/a", catalog.TypeFolder).
		Seed("p/a/b", catalog.TypeImageCollection).
		Seed("p/a/b/c", catalog.TypeImage).
		Seed("p/a/d", catalog.TypeImage)

	var planned []int
	runner := batch.NewRunner(fake,
		batch.WithMaxParallel(4),
		batch.WithRetryPolicy(catalog.RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    2 * time.Millisecond,
		}),
		batch.WithPlanned(func(total int) { planned = append(planned, total) }),
	)

	report, err := runner.Run(testContext(t), batch.NewRequest(batch.OpDelete, "p/a"))
	require.NoError(t, err)
	assert.Equal(t, 4, report.Total)

	// The buffered walk reports its total exactly once, before any delete
	require.Len(t, planned, 1)
	assert.Equal(t, 4, planned[0])

	// Streaming operations never know a total up front
	fake = catalogtest.NewFake()
	fake.Seed("p/src", catalog.TypeFolder).Seed("p/src/img", catalog.TypeImage)
	planned = nil
	runner = batch.NewRunner(fake,
		batch.WithPlanned(func(total int) { planned = append(planned, total) }))
	req := batch.NewRequest(batch.OpCopy, "p/src")
	req.DestRoot = "p/dst"
	_, err = runner.Run(testContext(t), req)
	require.NoError(t, err)
	assert.Empty(t, planned)
}

// --- copy ---

func TestCopyMirrorsSubtree(t *testing.T) {
	fake := catalogtest.NewFake()
	fake.Seed("p/src", catalog.TypeFolder).
		Seed("p/src/coll", catalog.TypeImageCollection).
		Seed("p/src/coll/img", catalog.TypeImage).
		Seed("p/src/tbl", catalog.TypeTable)

	req := batch.NewRequest(batch.OpCopy, "p/src")
	req.DestRoot = "p/dst"
	report, err := newRunner(fake).Run(testContext(t), req)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Succeeded)
	checkAccounting(t, report)

	assert.True(t, fake.Exists("p/dst"))
	assert.True(t, fake.Exists("p/dst/coll"))
	assert.True(t, fake.Exists("p/dst/coll/img"))
	assert.True(t, fake.Exists("p/dst/tbl"))
	// Source untouched
	assert.True(t, fake.Exists("p/src/coll/img"))
}

func TestCopyOntoOccupiedDestinationSkipsDescendants(t *testing.T) {
	fake := catalogtest.NewFake()
	fake.Seed("p/src", catalog.TypeFolder).
		Seed("p/src/img", catalog.TypeImage)
	// Destination is occupied by a non-container
	fake.Seed("p/dst", catalog.TypeImage)

	req := batch.NewRequest(batch.OpCopy, "p/src")
	req.DestRoot = "p/dst"
	report, err := newRunner(fake).Run(testContext(t), req)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Skipped)
	checkAccounting(t, report)

	// The child was never attempted
	assert.Empty(t, fake.CallsFor("copyAsset"))
	require.Len(t, report.Failures, 2)
}

func TestCopyIdempotentContainerCreation(t *testing.T) {
	fake := catalogtest.NewFake()
	fake.Seed("p/src", catalog.TypeFolder).
		Seed("p/src/img", catalog.TypeImage)
	// An equivalent container already exists at the destination
	fake.Seed("p/dst", catalog.TypeFolder)

	req := batch.NewRequest(batch.OpCopy, "p/src")
	req.DestRoot = "p/dst"
	report, err := newRunner(fake).Run(testContext(t), req)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.True(t, fake.Exists("p/dst/img"))
}

func TestCopyChildrenOnly(t *testing.T) {
	fake := catalogtest.NewFake()
	fake.Seed("p/src", catalog.TypeFolder).
		Seed("p/src/img1", catalog.TypeImage).
		Seed("p/src/img2", catalog.TypeImage).
		Seed("p/src/sub", catalog.TypeFolder).
		Seed("p/src/sub/deep", catalog.TypeImage)

	req := batch.NewRequest(batch.OpCopy, "p/src")
	req.DestRoot = "p/dst"
	req.ChildrenOnly = true
	report, err := newRunner(fake).Run(testContext(t), req)
	require.NoError(t, err)

	// Root + two leaf children succeed, the container child is skipped and
	// never recursed into
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 1, report.Skipped)
	checkAccounting(t, report)

	assert.True(t, fake.Exists("p/dst/img1"))
	assert.True(t, fake.Exists("p/dst/img2"))
	assert.False(t, fake.Exists("p/dst/sub"))
	assert.False(t, fake.Exists("p/dst/sub/deep"))
}

func TestCopyWildcardRoots(t *testing.T) {
	fake := catalogtest.NewFake()
	fake.Seed("p/assets", catalog.TypeFolder).
		Seed("p/assets/l2019", catalog.TypeFolder).
		Seed("p/assets/l2019/img", catalog.TypeImage).
		Seed("p/assets/l2020", catalog.TypeFolder).
		Seed("p/assets/other", catalog.TypeFolder)
	fake.Seed("p/backup", catalog.TypeFolder)

	req := batch.NewRequest(batch.OpCopy, "p/assets/l*")
	req.DestRoot = "p/backup"
	report, err := newRunner(fake).Run(testContext(t), req)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Succeeded)
	// Each expansion lands under the destination by its own name
	assert.True(t, fake.Exists("p/backup/l2019"))
	assert.True(t, fake.Exists("p/backup/l2019/img"))
	assert.True(t, fake.Exists("p/backup/l2020"))
	assert.False(t, fake.Exists("p/backup/other"))
}

func TestCopyRetriesTransientFailure(t *testing.T) {
	fake := catalogtest.NewFake()
	fake.Seed("p/src", catalog.TypeImage)
	fake.FailN("copyAsset", "p/src", 1,
		catalog.NewError(catalog.KindTransient, "copyAsset", "p/src", nil))

	req := batch.NewRequest(batch.OpCopy, "p/src")
	req.DestRoot = "p/dst"
	report, err := newRunner(fake).Run(testContext(t), req)
	require.NoError(t, err)

	require.Equal(t, 1, report.Succeeded)
	assert.True(t, fake.Exists("p/dst"))
}

// --- move ---

func TestMoveRelocatesSubtree(t *testing.T) {
	fake := catalogtest.NewFake()
	fake.Seed("p/src", catalog.TypeFolder).
		Seed("p/src/coll", catalog.TypeImageCollection).
		Seed("p/src/coll/img", catalog.TypeImage)

	req := batch.NewRequest(batch.OpMove, "p/src")
	req.DestRoot = "p/dst"
	report, err := newRunner(fake).Run(testContext(t), req)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Succeeded)
	checkAccounting(t, report)

	assert.True(t, fake.Exists("p/dst/coll/img"))
	assert.False(t, fake.Exists("p/src"))
	assert.False(t, fake.Exists("p/src/coll"))
	assert.False(t, fake.Exists("p/src/coll/img"))
}

func TestMoveFailedCopyLeavesSourceIntact(t *testing.T) {
	fake := catalogtest.NewFake()
	fake.Seed("p/src", catalog.TypeImage)
	fake.FailWith("copyAsset", "p/src",
		catalog.NewError(catalog.KindPermissionDenied, "copyAsset", "p/src", nil))

	req := batch.NewRequest(batch.OpMove, "p/src")
	req.DestRoot = "p/dst"
	report, err := newRunner(fake).Run(testContext(t), req)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	// No copy happened, so the source was never deleted
	assert.True(t, fake.Exists("p/src"))
	assert.False(t, fake.Exists("p/dst"))
	assert.Empty(t, fake.CallsFor("deleteAsset"))
}

func TestMovePartialFailureKeepsSourceContainers(t *testing.T) {
	fake := catalogtest.NewFake()
	fake.Seed("p/src", catalog.TypeFolder).
		Seed("p/src/good", catalog.TypeImage).
		Seed("p/src/bad", catalog.TypeImage)
	fake.FailWith("copyAsset", "p/src/bad",
		catalog.NewError(catalog.KindPermissionDenied, "copyAsset", "p/src/bad", nil))

	req := batch.NewRequest(batch.OpMove, "p/src")
	req.DestRoot = "p/dst"
	report, err := newRunner(fake).Run(testContext(t), req)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)

	// The good leaf moved, the bad one stayed, and the source container was
	// kept because its subtree did not fully move
	assert.True(t, fake.Exists("p/dst/good"))
	assert.False(t, fake.Exists("p/src/good"))
	assert.True(t, fake.Exists("p/src/bad"))
	assert.True(t, fake.Exists("p/src"))
}

// --- access ---

func TestSetAccessGrantsAcrossSubtree(t *testing.T) {
	fake := catalogtest.NewFake()
	fake.Seed("p/a", catalog.TypeFolder).
		Seed("p/a/img", catalog.TypeImage)

	req := batch.NewRequest(batch.OpSetAccess, "p/a")
	req.Principal = catalog.ParsePrincipal("ana@example.com")
	req.Role = catalog.RoleReader
	report, err := newRunner(fake).Run(testContext(t), req)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Succeeded)
	assert.Contains(t, fake.ACLOf("p/a").Readers, "user:ana@example.com")
	assert.Contains(t, fake.ACLOf("p/a/img").Readers, "user:ana@example.com")
}

func TestSetAccessIdempotent(t *testing.T) {
	fake := catalogtest.NewFake()
	fake.Seed("p/a", catalog.TypeImage)

	req := batch.NewRequest(batch.OpSetAccess, "p/a")
	req.Principal = catalog.ParsePrincipal("ana@example.com")
	req.Role = catalog.RoleWriter

	_, err := newRunner(fake).Run(testContext(t), req)
	require.NoError(t, err)
	writes := len(fake.CallsFor("setAcl"))
	assert.Equal(t, 1, writes)

	// Re-applying the same grant succeeds without another write
	report, err := newRunner(fake).Run(testContext(t), batchCloneAccess(req))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Len(t, fake.CallsFor("setAcl"), writes)
	assert.Equal(t, []string{"user:ana@example.com"}, fake.ACLOf("p/a").Writers)
}

// batchCloneAccess rebuilds an access request with a fresh run id
func batchCloneAccess(req *batch.Request) *batch.Request {
	clone := batch.NewRequest(req.Kind, req.SourceRoot)
	clone.Principal = req.Principal
	clone.Role = req.Role
	return clone
}

func TestSetAccessDeleteRoleRevokes(t *testing.T) {
	fake := catalogtest.NewFake()
	fake.Seed("p/a", catalog.TypeImage)
	require.NoError(t, fake.SetACL(context.Background(), "p/a", &catalog.ACL{
		Readers: []string{"user:ana@example.com"},
		Writers: []string{"user:ana@example.com", "user:bo@example.com"},
	}))

	req := batch.NewRequest(batch.OpSetAccess, "p/a")
	req.Principal = catalog.ParsePrincipal("ana@example.com")
	req.Role = catalog.RoleDelete
	report, err := newRunner(fake).Run(testContext(t), req)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Succeeded)
	acl := fake.ACLOf("p/a")
	assert.Empty(t, acl.Readers)
	assert.Equal(t, []string{"user:bo@example.com"}, acl.Writers)
}

func TestSetAccessAllUsersReadFlag(t *testing.T) {
	fake := catalogtest.NewFake()
	fake.Seed("p/a", catalog.TypeImage)

	req := batch.NewRequest(batch.OpSetAccess, "p/a")
	req.Principal = catalog.ParsePrincipal("allUsers")
	req.Role = catalog.RoleReader
	_, err := newRunner(fake).Run(testContext(t), req)
	require.NoError(t, err)
	assert.True(t, fake.ACLOf("p/a").AllUsersCanRead)

	req = batch.NewRequest(batch.OpSetAccess, "p/a")
	req.Principal = catalog.ParsePrincipal("allUsers")
	req.Role = catalog.RoleDelete
	_, err = newRunner(fake).Run(testContext(t), req)
	require.NoError(t, err)
	assert.False(t, fake.ACLOf("p/a").AllUsersCanRead)
}

// --- delete-property ---

func TestDeletePropertyAcrossSubtree(t *testing.T) {
	fake := catalogtest.NewFake()
	fake.SeedWithProps("p/a", catalog.TypeFolder, map[string]string{"source": "sat"}).
		SeedWithProps("p/a/img", catalog.TypeImage, map[string]string{"source": "sat", "keep": "yes"}).
		Seed("p/a/bare", catalog.TypeImage)

	req := batch.NewRequest(batch.OpDeleteProperty, "p/a")
	req.PropertyKey = "source"
	report, err := newRunner(fake).Run(testContext(t), req)
	require.NoError(t, err)

	// Assets without the key still count as succeeded
	assert.Equal(t, 3, report.Succeeded)
	assert.NotContains(t, fake.PropertiesOf("p/a"), "source")
	assert.NotContains(t, fake.PropertiesOf("p/a/img"), "source")
	assert.Contains(t, fake.PropertiesOf("p/a/img"), "keep")
}

// --- request validation ---

func TestRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *batch.Request
		wantErr bool
	}{
		{name: "copy_without_dest", wantErr: true, build: func() *batch.Request {
			return batch.NewRequest(batch.OpCopy, "p/a")
		}},
		{name: "copy_dest_equals_source", wantErr: true, build: func() *batch.Request {
			r := batch.NewRequest(batch.OpCopy, "p/a")
			r.DestRoot = "p/a"
			return r
		}},
		{name: "copy_dest_inside_source", wantErr: true, build: func() *batch.Request {
			r := batch.NewRequest(batch.OpCopy, "p/a")
			r.DestRoot = "p/a/sub"
			return r
		}},
		{name: "copy_sibling_prefix_ok", wantErr: false, build: func() *batch.Request {
			r := batch.NewRequest(batch.OpCopy, "p/a")
			r.DestRoot = "p/ab"
			return r
		}},
		{name: "delete_property_without_key", wantErr: true, build: func() *batch.Request {
			return batch.NewRequest(batch.OpDeleteProperty, "p/a")
		}},
		{name: "access_without_principal", wantErr: true, build: func() *batch.Request {
			return batch.NewRequest(batch.OpSetAccess, "p/a")
		}},
		{name: "empty_source", wantErr: true, build: func() *batch.Request {
			return batch.NewRequest(batch.OpDelete, "")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build().Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunInvalidRequestFailsFast(t *testing.T) {
	fake := catalogtest.NewFake()
	req := batch.NewRequest(batch.OpCopy, "p/a")

	_, err := newRunner(fake).Run(testContext(t), req)
	require.Error(t, err)
	assert.Empty(t, fake.Calls)
}
