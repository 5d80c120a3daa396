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
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gitlab.com/tozd/go/errors"
)

func TestKindOf(t *testing.T) {
	base := NewError(KindNotFound, "getAsset", "projects/demo/assets/x", nil)
	assert.Equal(t, KindNotFound, KindOf(base))

	// Classification survives wrapping
	wrapped := errors.Errorf("resolving root: %w", base)
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsNotFound(wrapped))

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestOnlyTransientIsRetryable(t *testing.T) {
	assert.True(t, KindTransient.Retryable())
	for _, k := range []ErrorKind{KindUnknown, KindNotFound, KindPermissionDenied, KindAlreadyExists, KindInvalidArgument} {
		assert.False(t, k.Retryable(), k.String())
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{http.StatusTooManyRequests, KindTransient},
		{http.StatusInternalServerError, KindTransient},
		{http.StatusServiceUnavailable, KindTransient},
		{http.StatusNotFound, KindNotFound},
		{http.StatusForbidden, KindPermissionDenied},
		{http.StatusUnauthorized, KindPermissionDenied},
		{http.StatusConflict, KindAlreadyExists},
		{http.StatusBadRequest, KindInvalidArgument},
		{http.StatusTeapot, KindUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyStatus(tt.status), "status %d", tt.status)
	}
}
