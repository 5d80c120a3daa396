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

// Package catalogtest provides an in-memory catalog.Client for tests. The
// fake keeps a real mutable tree so create/copy/delete interact the way the
// hosted catalog does, and lets tests inject per-path failures and record
// call order.
package catalogtest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"assetman/pkg/catalog"
)

// Fake is an in-memory catalog.Client
type Fake struct {
	mu sync.Mutex

	assets map[string]*catalog.Asset
	acls   map[string]*catalog.ACL
	tasks  map[string]*catalog.TaskStatus
	quotas map[string]*catalog.Quota

	// failures maps "op path" to the error returned for that call; "op *"
	// fails every path for the op. A FailN entry decrements per call so a
	// path can fail transiently and then recover.
	failures map[string]*failure

	// Calls records "op path" strings in invocation order
	Calls []string
}

type failure struct {
	err       error
	remaining int // <0 means fail forever
}

// NewFake builds an empty fake catalog
func NewFake() *Fake {
	return &Fake{
		assets:   map[string]*catalog.Asset{},
		acls:     map[string]*catalog.ACL{},
		tasks:    map[string]*catalog.TaskStatus{},
		quotas:   map[string]*catalog.Quota{},
		failures: map[string]*failure{},
	}
}

// Seed adds an asset (and an empty ACL) to the tree
func (f *Fake) Seed(path string, typ catalog.AssetType) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assets[path] = &catalog.Asset{Path: path, Type: typ, Properties: map[string]string{}}
	f.acls[path] = &catalog.ACL{}
	return f
}

// SeedWithProps adds an asset carrying metadata properties
func (f *Fake) SeedWithProps(path string, typ catalog.AssetType, props map[string]string) *Fake {
	f.Seed(path, typ)
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, v := range props {
		f.assets[path].Properties[k] = v
	}
	return f
}

// SeedAssetSize sets the stored size of an already-seeded asset
func (f *Fake) SeedAssetSize(path string, size int64) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.assets[path]; ok {
		a.SizeBytes = size
	}
	return f
}

// SeedQuota registers the usage limits of an asset root
func (f *Fake) SeedQuota(root string, q catalog.Quota) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := q
	f.quotas[root] = &cp
	return f
}

// SeedTask registers an asynchronous job
func (f *Fake) SeedTask(t catalog.TaskStatus) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := t
	f.tasks[t.ID] = &cp
	return f
}

// FailWith makes every call of op on path fail with err; path "*" matches all
func (f *Fake) FailWith(op, path string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op+" "+path] = &failure{err: err, remaining: -1}
	return f
}

// FailN makes the next n calls of op on path fail with err, then succeed
func (f *Fake) FailN(op, path string, n int, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op+" "+path] = &failure{err: err, remaining: n}
	return f
}

// Exists reports whether the asset is currently in the tree
func (f *Fake) Exists(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.assets[path]
	return ok
}

// ACLOf returns the stored ACL for assertions
func (f *Fake) ACLOf(path string) *catalog.ACL {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acls[path]
}

// PropertiesOf returns the stored properties for assertions
func (f *Fake) PropertiesOf(path string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.assets[path]; ok {
		return a.Properties
	}
	return nil
}

// TaskState returns the stored state of a task for assertions
func (f *Fake) TaskState(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tasks[id]; ok {
		return t.State
	}
	return ""
}

// CallsFor returns the recorded paths for one op, in order
func (f *Fake) CallsFor(op string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.Calls {
		if strings.HasPrefix(c, op+" ") {
			out = append(out, strings.TrimPrefix(c, op+" "))
		}
	}
	return out
}

func (f *Fake) check(op, path string) error {
	f.Calls = append(f.Calls, op+" "+path)
	for _, key := range []string{op + " " + path, op + " *"} {
		if fl, ok := f.failures[key]; ok {
			if fl.remaining < 0 {
				return fl.err
			}
			if fl.remaining > 0 {
				fl.remaining--
				return fl.err
			}
		}
	}
	return nil
}

// GetAsset implements catalog.Client
func (f *Fake) GetAsset(ctx context.Context, path string) (*catalog.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("getAsset", path); err != nil {
		return nil, err
	}
	a, ok := f.assets[path]
	if !ok {
		return nil, catalog.NewError(catalog.KindNotFound, "getAsset", path, nil)
	}
	cp := *a
	return &cp, nil
}

// ListAssets implements catalog.Client; children come back sorted by path
func (f *Fake) ListAssets(ctx context.Context, parent string) ([]*catalog.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("listAssets", parent); err != nil {
		return nil, err
	}
	if _, ok := f.assets[parent]; !ok {
		return nil, catalog.NewError(catalog.KindNotFound, "listAssets", parent, nil)
	}
	var out []*catalog.Asset
	prefix := parent + "/"
	for p, a := range f.assets {
		if strings.HasPrefix(p, prefix) && !strings.Contains(p[len(prefix):], "/") {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// CreateAsset implements catalog.Client
func (f *Fake) CreateAsset(ctx context.Context, path string, typ catalog.AssetType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("createAsset", path); err != nil {
		return err
	}
	if _, ok := f.assets[path]; ok {
		return catalog.NewError(catalog.KindAlreadyExists, "createAsset", path, nil)
	}
	f.assets[path] = &catalog.Asset{Path: path, Type: typ, Properties: map[string]string{}}
	f.acls[path] = &catalog.ACL{}
	return nil
}

// CopyAsset implements catalog.Client
func (f *Fake) CopyAsset(ctx context.Context, src, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("copyAsset", src); err != nil {
		return err
	}
	a, ok := f.assets[src]
	if !ok {
		return catalog.NewError(catalog.KindNotFound, "copyAsset", src, nil)
	}
	if _, ok := f.assets[dst]; ok {
		return catalog.NewError(catalog.KindAlreadyExists, "copyAsset", dst, nil)
	}
	cp := *a
	cp.Path = dst
	cp.Properties = map[string]string{}
	for k, v := range a.Properties {
		cp.Properties[k] = v
	}
	f.assets[dst] = &cp
	f.acls[dst] = &catalog.ACL{}
	return nil
}

// DeleteAsset implements catalog.Client; non-empty containers are rejected
// the way the hosted catalog rejects them
func (f *Fake) DeleteAsset(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("deleteAsset", path); err != nil {
		return err
	}
	if _, ok := f.assets[path]; !ok {
		return catalog.NewError(catalog.KindNotFound, "deleteAsset", path, nil)
	}
	prefix := path + "/"
	for p := range f.assets {
		if strings.HasPrefix(p, prefix) {
			return catalog.NewError(catalog.KindInvalidArgument, "deleteAsset", path, nil)
		}
	}
	delete(f.assets, path)
	delete(f.acls, path)
	return nil
}

// GetACL implements catalog.Client
func (f *Fake) GetACL(ctx context.Context, path string) (*catalog.ACL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("getAcl", path); err != nil {
		return nil, err
	}
	acl, ok := f.acls[path]
	if !ok {
		return nil, catalog.NewError(catalog.KindNotFound, "getAcl", path, nil)
	}
	cp := catalog.ACL{
		Owners:          append([]string(nil), acl.Owners...),
		Writers:         append([]string(nil), acl.Writers...),
		Readers:         append([]string(nil), acl.Readers...),
		AllUsersCanRead: acl.AllUsersCanRead,
	}
	return &cp, nil
}

// SetACL implements catalog.Client
func (f *Fake) SetACL(ctx context.Context, path string, acl *catalog.ACL) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("setAcl", path); err != nil {
		return err
	}
	if _, ok := f.acls[path]; !ok {
		return catalog.NewError(catalog.KindNotFound, "setAcl", path, nil)
	}
	cp := catalog.ACL{
		Owners:          append([]string(nil), acl.Owners...),
		Writers:         append([]string(nil), acl.Writers...),
		Readers:         append([]string(nil), acl.Readers...),
		AllUsersCanRead: acl.AllUsersCanRead,
	}
	f.acls[path] = &cp
	return nil
}

// DeleteProperty implements catalog.Client; a missing key is a no-op
func (f *Fake) DeleteProperty(ctx context.Context, path, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("deleteProperty", path); err != nil {
		return err
	}
	a, ok := f.assets[path]
	if !ok {
		return catalog.NewError(catalog.KindNotFound, "deleteProperty", path, nil)
	}
	delete(a.Properties, key)
	return nil
}

// GetQuota implements catalog.Client
func (f *Fake) GetQuota(ctx context.Context, root string) (*catalog.Quota, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("getQuota", root); err != nil {
		return nil, err
	}
	q, ok := f.quotas[root]
	if !ok {
		return nil, catalog.NewError(catalog.KindNotFound, "getQuota", root, nil)
	}
	cp := *q
	return &cp, nil
}

// ListTasks implements catalog.Client
func (f *Fake) ListTasks(ctx context.Context) ([]catalog.TaskStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("listTasks", ""); err != nil {
		return nil, err
	}
	out := make([]catalog.TaskStatus, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetTask implements catalog.Client
func (f *Fake) GetTask(ctx context.Context, id string) (*catalog.TaskStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("getTask", id); err != nil {
		return nil, err
	}
	t, ok := f.tasks[id]
	if !ok {
		return nil, catalog.NewError(catalog.KindNotFound, "getTask", id, nil)
	}
	cp := *t
	return &cp, nil
}

// CancelTask implements catalog.Client; terminal tasks reject cancellation
func (f *Fake) CancelTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("cancelTask", id); err != nil {
		return err
	}
	t, ok := f.tasks[id]
	if !ok {
		return catalog.NewError(catalog.KindNotFound, "cancelTask", id, nil)
	}
	switch t.State {
	case "COMPLETED", "SUCCEEDED", "FAILED", "CANCELLED":
		return catalog.NewError(catalog.KindInvalidArgument, "cancelTask", id, nil)
	}
	t.State = "CANCELLED"
	t.UpdatedAt = time.Now()
	return nil
}

var _ catalog.Client = (*Fake)(nil)
