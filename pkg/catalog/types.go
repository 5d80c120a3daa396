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

// Package catalog defines the asset model of the remote catalog and the
// capability interface the batch engine uses to talk to it.
package catalog

import (
	"strings"
	"time"
)

// 🌳 AssetType classifies a node in the catalog tree
type AssetType int

const (
	TypeUnknown AssetType = iota
	TypeFolder
	TypeImageCollection
	TypeImage
	TypeTable
)

// String returns the catalog wire name for the asset type
func (t AssetType) String() string {
	switch t {
	case TypeFolder:
		return "FOLDER"
	case TypeImageCollection:
		return "IMAGE_COLLECTION"
	case TypeImage:
		return "IMAGE"
	case TypeTable:
		return "TABLE"
	default:
		return "UNKNOWN"
	}
}

// ParseAssetType maps a catalog wire name onto an AssetType. Unrecognized
// names come back as TypeUnknown rather than an error, so a new remote type
// degrades to "present but unclassified" instead of breaking a walk.
func ParseAssetType(s string) AssetType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FOLDER":
		return TypeFolder
	case "IMAGE_COLLECTION", "IMAGECOLLECTION":
		return TypeImageCollection
	case "IMAGE":
		return TypeImage
	case "TABLE", "FEATURE_VIEW":
		return TypeTable
	default:
		return TypeUnknown
	}
}

// IsContainer reports whether assets of this type may have children
func (t AssetType) IsContainer() bool {
	return t == TypeFolder || t == TypeImageCollection
}

// 📦 Asset is one node in the hierarchical catalog
type Asset struct {
	// Path is the full slash-delimited catalog path, unique per asset
	Path string
	// Type constrains which operations are legal on the asset
	Type AssetType
	// SizeBytes is the stored size, when the catalog reports one
	SizeBytes int64
	// Properties holds user metadata keys attached to the asset
	Properties map[string]string
}

// Name returns the final path segment of the asset
func (a *Asset) Name() string {
	idx := strings.LastIndex(a.Path, "/")
	if idx < 0 {
		return a.Path
	}
	return a.Path[idx+1:]
}

// ParentPath returns the path with the final segment stripped, or "" for a
// root asset. Every non-root asset has exactly one parent.
func ParentPath(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// Depth counts the path separators, giving a cheap ancestor ordering key
func Depth(path string) int {
	return strings.Count(path, "/")
}

// 🔑 ACL is the access control list of one asset as the catalog reports it
type ACL struct {
	Owners          []string
	Writers         []string
	Readers         []string
	AllUsersCanRead bool
}

// 📊 Quota is an asset root's usage against its project limits. A limit of
// zero means the catalog reports no limit for that dimension.
type Quota struct {
	AssetCount   int64
	MaxAssets    int64
	SizeBytes    int64
	MaxSizeBytes int64
}

// 🗒️ TaskStatus is the raw description of one asynchronous remote job as
// returned by the catalog task API. The tasks package folds these into its
// monitored state machine.
type TaskStatus struct {
	ID           string
	Kind         string
	State        string
	Description  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ResourceUsed float64
}
