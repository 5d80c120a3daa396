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

package catalog

import (
	"context"
)

// Client is the capability set the batch engine needs from the remote
// catalog. Implementations own authentication, request signing and wire
// framing; every method may fail transiently (rate limit, network) or
// permanently (not found, permission denied), reported as *Error.
type Client interface {
	// GetAsset resolves a path to its asset record
	GetAsset(ctx context.Context, path string) (*Asset, error)
	// ListAssets returns the direct children of a container asset
	ListAssets(ctx context.Context, parent string) ([]*Asset, error)
	// CreateAsset creates an empty container asset at path
	CreateAsset(ctx context.Context, path string, typ AssetType) error
	// CopyAsset copies a leaf asset from src to dst
	CopyAsset(ctx context.Context, src, dst string) error
	// DeleteAsset deletes the asset at path; containers must be empty
	DeleteAsset(ctx context.Context, path string) error
	// GetACL returns the current access control list of the asset
	GetACL(ctx context.Context, path string) (*ACL, error)
	// SetACL replaces the access control list of the asset
	SetACL(ctx context.Context, path string, acl *ACL) error
	// DeleteProperty removes a metadata key from the asset; a missing key is
	// not an error
	DeleteProperty(ctx context.Context, path, key string) error
	// GetQuota returns the usage and limits of an asset root
	GetQuota(ctx context.Context, root string) (*Quota, error)
	// ListTasks returns the status of all asynchronous jobs visible to the
	// caller
	ListTasks(ctx context.Context) ([]TaskStatus, error)
	// GetTask returns the status of a single job
	GetTask(ctx context.Context, id string) (*TaskStatus, error)
	// CancelTask requests cancellation of a job; already-terminal jobs fail
	// with KindInvalidArgument
	CancelTask(ctx context.Context, id string) error
}
