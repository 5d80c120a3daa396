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

// Package batch implements the recursive tree-operation engine: discovery,
// type-dispatched remote operations, bounded concurrency and partial-failure
// accounting over one catalog subtree.
package batch

import (
	"strings"

	"github.com/google/uuid"
	"gitlab.com/tozd/go/errors"

	"assetman/pkg/catalog"
)

// OpKind selects the tree operation a Request performs
type OpKind int

const (
	OpCopy OpKind = iota
	OpMove
	OpDelete
	OpSetAccess
	OpDeleteProperty
)

// String returns the user-facing operation name
func (k OpKind) String() string {
	switch k {
	case OpCopy:
		return "copy"
	case OpMove:
		return "move"
	case OpDelete:
		return "delete"
	case OpSetAccess:
		return "access"
	case OpDeleteProperty:
		return "delete-property"
	default:
		return "unknown"
	}
}

// Request describes one tree-scoped batch operation. It is created once per
// invocation and never mutated afterwards.
type Request struct {
	// ID tags every log line of one run
	ID string
	// Kind selects the operation
	Kind OpKind
	// SourceRoot is the subtree root; it may contain shell-style wildcard
	// segments which are expanded against the live catalog
	SourceRoot string
	// DestRoot is the destination root for Copy and Move
	DestRoot string
	// Principal and Role drive SetAccess
	Principal catalog.Principal
	Role      catalog.Role
	// PropertyKey names the metadata key removed by DeleteProperty
	PropertyKey string
	// ChildrenOnly switches Copy to the non-mirrored mode: only the direct
	// children of each resolved root are enumerated, landing directly under
	// DestRoot without the relative path structure
	ChildrenOnly bool
}

// NewRequest builds a Request with a fresh run id
func NewRequest(kind OpKind, sourceRoot string) *Request {
	return &Request{
		ID:         uuid.NewString(),
		Kind:       kind,
		SourceRoot: sourceRoot,
	}
}

// Validate rejects structurally invalid requests before any remote call
func (r *Request) Validate() error {
	if r.SourceRoot == "" {
		return errors.Errorf("source root is required")
	}
	switch r.Kind {
	case OpCopy, OpMove:
		if r.DestRoot == "" {
			return errors.Errorf("%s requires a destination root", r.Kind)
		}
		if r.DestRoot == r.SourceRoot {
			return errors.Errorf("source and destination are the same path")
		}
		if strings.HasPrefix(r.DestRoot+"/", r.SourceRoot+"/") {
			return errors.Errorf("destination %s is inside source %s", r.DestRoot, r.SourceRoot)
		}
	case OpDeleteProperty:
		if r.PropertyKey == "" {
			return errors.Errorf("delete-property requires a property key")
		}
	case OpSetAccess:
		if r.Principal.Kind != catalog.PrincipalAllUsers && r.Principal.Email == "" {
			return errors.Errorf("access requires a principal")
		}
	}
	return nil
}

// destFor computes the destination path of node for a subtree rooted at
// rootPath whose destination is destBase: prefix-stripping arithmetic on the
// opaque path scheme.
func destFor(rootPath, destBase, nodePath string) string {
	if nodePath == rootPath {
		return destBase
	}
	return destBase + strings.TrimPrefix(nodePath, rootPath)
}
