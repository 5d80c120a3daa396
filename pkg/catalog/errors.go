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
	stderrors "errors"
	"fmt"
)

// ⚠️ ErrorKind is the closed taxonomy of remote-call failures. Everything the
// remote surfaces is folded into one of these before the engine sees it, so
// retry and accounting decisions never depend on provider error strings.
type ErrorKind int

const (
	// KindUnknown covers unrecognized remote errors; treated conservatively
	// as non-retryable
	KindUnknown ErrorKind = iota
	// KindTransient covers rate limits, timeouts and 5xx-equivalents; retried
	KindTransient
	KindNotFound
	KindPermissionDenied
	KindAlreadyExists
	KindInvalidArgument
)

// String returns a stable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindAlreadyExists:
		return "already_exists"
	case KindInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// Retryable reports whether calls failing with this kind may be retried
func (k ErrorKind) Retryable() bool {
	return k == KindTransient
}

// Error is a remote-call failure tagged with its kind
type Error struct {
	Kind ErrorKind
	Op   string // remote operation, e.g. "copyAsset"
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a kind-tagged catalog error
func NewError(kind ErrorKind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// KindOf extracts the error kind from err, or KindUnknown when err carries
// no catalog classification
func KindOf(err error) ErrorKind {
	var ce *Error
	if stderrors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is a catalog NotFound failure
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsAlreadyExists reports whether err is a catalog AlreadyExists failure
func IsAlreadyExists(err error) bool {
	return KindOf(err) == KindAlreadyExists
}
