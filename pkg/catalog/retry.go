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
	"time"
)

// 🔁 RetryPolicy bounds how transient remote failures are retried
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, first call included
	MaxAttempts int
	// BaseDelay is the wait before the first retry; it doubles per attempt
	BaseDelay time.Duration
	// MaxDelay caps the per-attempt wait
	MaxDelay time.Duration
}

// DefaultRetryPolicy matches the rate limits of the hosted catalog
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}
}

// Retry runs fn until it succeeds, fails permanently, or the attempt budget
// is exhausted. Only KindTransient failures are retried; every other kind
// returns immediately. The returned count is the number of retries performed
// (0 when the first call settled the matter).
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) (int, error) {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	delay := policy.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return attempt - 1, nil
		}
		if !KindOf(lastErr).Retryable() {
			return attempt - 1, lastErr
		}
		if attempt == policy.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return attempt - 1, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
	return policy.MaxAttempts - 1, lastErr
}
