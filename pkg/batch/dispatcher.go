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

package batch

import (
	"context"

	"github.com/rs/zerolog"

	"assetman/pkg/catalog"
)

// Dispatcher invokes the correct remote call for one node and operation
// kind, applying the retry policy and recording the outcome. Node failures
// are returned as outcomes, never as errors; nothing a dispatcher does can
// abort the batch.
type Dispatcher struct {
	client catalog.Client
	retry  catalog.RetryPolicy
}

// NewDispatcher builds a dispatcher over the catalog client
func NewDispatcher(client catalog.Client, retry catalog.RetryPolicy) *Dispatcher {
	return &Dispatcher{client: client, retry: retry}
}

// Apply runs the request's operation against node. dest is the computed
// destination path (Copy/Move only, empty otherwise).
func (d *Dispatcher) Apply(ctx context.Context, node *catalog.Asset, dest string, req *Request) NodeOutcome {
	out := NodeOutcome{Path: node.Path, Type: node.Type, Attempted: true}

	var retries int
	var err error
	switch req.Kind {
	case OpDelete:
		retries, err = catalog.Retry(ctx, d.retry, func() error {
			return d.client.DeleteAsset(ctx, node.Path)
		})
	case OpCopy:
		retries, err = d.applyCopy(ctx, node, dest)
	case OpMove:
		retries, err = d.applyMove(ctx, node, dest)
	case OpSetAccess:
		retries, err = d.applySetAccess(ctx, node, req.Principal, req.Role)
	case OpDeleteProperty:
		retries, err = catalog.Retry(ctx, d.retry, func() error {
			return d.client.DeleteProperty(ctx, node.Path, req.PropertyKey)
		})
	}

	out.Retries = retries
	if err != nil {
		out.ErrorKind = catalog.KindOf(err)
		out.Err = err
		zerolog.Ctx(ctx).Debug().
			Str("path", node.Path).
			Str("op", req.Kind.String()).
			Str("error_kind", out.ErrorKind.String()).
			Int("retries", retries).
			Err(err).
			Msg("node failed")
		return out
	}
	out.Succeeded = true
	return out
}

// applyCopy copies one node. Containers are created at the destination
// (idempotent when an equivalent container already exists) so their children
// can be written next; leaves are copied outright, and an occupied
// destination is a failure.
func (d *Dispatcher) applyCopy(ctx context.Context, node *catalog.Asset, dest string) (int, error) {
	if node.Type.IsContainer() {
		return d.ensureContainer(ctx, dest, node.Type)
	}
	return catalog.Retry(ctx, d.retry, func() error {
		return d.client.CopyAsset(ctx, node.Path, dest)
	})
}

// applyMove moves one leaf: copy, then delete the source only once the copy
// succeeded. A failed copy leaves the source untouched. Container sources
// are only created at the destination here; the runner deletes them
// bottom-up after their whole subtree has moved.
func (d *Dispatcher) applyMove(ctx context.Context, node *catalog.Asset, dest string) (int, error) {
	if node.Type.IsContainer() {
		return d.ensureContainer(ctx, dest, node.Type)
	}
	copyRetries, err := catalog.Retry(ctx, d.retry, func() error {
		return d.client.CopyAsset(ctx, node.Path, dest)
	})
	if err != nil {
		return copyRetries, err
	}
	delRetries, err := catalog.Retry(ctx, d.retry, func() error {
		return d.client.DeleteAsset(ctx, node.Path)
	})
	return copyRetries + delRetries, err
}

// ensureContainer creates a destination container, treating "already exists
// as a compatible container" as success. An occupied destination of a
// non-container type stays an AlreadyExists failure.
func (d *Dispatcher) ensureContainer(ctx context.Context, dest string, typ catalog.AssetType) (int, error) {
	retries, err := catalog.Retry(ctx, d.retry, func() error {
		return d.client.CreateAsset(ctx, dest, typ)
	})
	if err == nil || !catalog.IsAlreadyExists(err) {
		return retries, err
	}
	existing, gerr := d.client.GetAsset(ctx, dest)
	if gerr == nil && existing.Type.IsContainer() {
		return retries, nil
	}
	return retries, err
}

// applySetAccess rewrites the node ACL for one principal. The Delete role
// revokes every grant the principal holds; Reader/Writer add the grant when
// missing. Re-applying the same change is a no-op that still succeeds.
func (d *Dispatcher) applySetAccess(ctx context.Context, node *catalog.Asset, principal catalog.Principal, role catalog.Role) (int, error) {
	var acl *catalog.ACL
	getRetries, err := catalog.Retry(ctx, d.retry, func() error {
		var gerr error
		acl, gerr = d.client.GetACL(ctx, node.Path)
		return gerr
	})
	if err != nil {
		return getRetries, err
	}

	modified := applyRoleChange(acl, principal, role)
	if !modified {
		return getRetries, nil
	}

	setRetries, err := catalog.Retry(ctx, d.retry, func() error {
		return d.client.SetACL(ctx, node.Path, acl)
	})
	return getRetries + setRetries, err
}

// applyRoleChange mutates acl in place and reports whether anything changed
func applyRoleChange(acl *catalog.ACL, principal catalog.Principal, role catalog.Role) bool {
	wire := principal.String()

	if role == catalog.RoleDelete {
		modified := false
		if principal.Kind == catalog.PrincipalAllUsers && acl.AllUsersCanRead {
			acl.AllUsersCanRead = false
			modified = true
		}
		for _, list := range []*[]string{&acl.Owners, &acl.Writers, &acl.Readers} {
			if removed := remove(list, wire); removed {
				modified = true
			}
		}
		return modified
	}

	if principal.Kind == catalog.PrincipalAllUsers {
		// The catalog models public read access as a flag, not a grant
		if role == catalog.RoleReader && !acl.AllUsersCanRead {
			acl.AllUsersCanRead = true
			return true
		}
		return false
	}

	target := &acl.Readers
	if role == catalog.RoleWriter {
		target = &acl.Writers
	}
	if contains(*target, wire) {
		return false
	}
	*target = append(*target, wire)
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func remove(list *[]string, s string) bool {
	for i, v := range *list {
		if v == s {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}
