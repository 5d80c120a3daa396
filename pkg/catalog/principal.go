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
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 👤 PrincipalKind tags the identity variant a Principal carries
type PrincipalKind int

const (
	PrincipalUser PrincipalKind = iota
	PrincipalGroup
	PrincipalServiceAccount
	PrincipalAllUsers
)

// Principal is an identity that can hold access roles on an asset
type Principal struct {
	Kind  PrincipalKind
	Email string // empty for PrincipalAllUsers
}

// Role is the access level granted (or, for RoleDelete, revoked)
type Role int

const (
	RoleReader Role = iota
	RoleWriter
	// RoleDelete revokes any existing access for the principal
	RoleDelete
)

// ParseRole maps the user-supplied role name onto a Role
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reader":
		return RoleReader, nil
	case "writer":
		return RoleWriter, nil
	case "delete":
		return RoleDelete, nil
	default:
		return 0, errors.Errorf("invalid role %q: use reader, writer or delete", s)
	}
}

// String returns the lower-case role name
func (r Role) String() string {
	switch r {
	case RoleReader:
		return "reader"
	case RoleWriter:
		return "writer"
	case RoleDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ParsePrincipal infers the principal kind from a bare identifier the way the
// catalog expects it: a googlegroups address is a group, a gserviceaccount
// address is a service account, the literal "allUsers" is everyone, anything
// else is a user. Already-prefixed identifiers are passed through.
func ParsePrincipal(s string) Principal {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "allusers") {
		return Principal{Kind: PrincipalAllUsers}
	}
	switch {
	case strings.HasPrefix(s, "user:"):
		return Principal{Kind: PrincipalUser, Email: strings.TrimPrefix(s, "user:")}
	case strings.HasPrefix(s, "group:"):
		return Principal{Kind: PrincipalGroup, Email: strings.TrimPrefix(s, "group:")}
	case strings.HasPrefix(s, "serviceAccount:"):
		return Principal{Kind: PrincipalServiceAccount, Email: strings.TrimPrefix(s, "serviceAccount:")}
	case strings.HasSuffix(s, "googlegroups.com"):
		return Principal{Kind: PrincipalGroup, Email: s}
	case strings.HasSuffix(s, "gserviceaccount.com"):
		return Principal{Kind: PrincipalServiceAccount, Email: s}
	default:
		return Principal{Kind: PrincipalUser, Email: s}
	}
}

// String returns the catalog wire form of the principal
func (p Principal) String() string {
	switch p.Kind {
	case PrincipalAllUsers:
		return "allUsers"
	case PrincipalGroup:
		return "group:" + p.Email
	case PrincipalServiceAccount:
		return "serviceAccount:" + p.Email
	default:
		return "user:" + p.Email
	}
}
