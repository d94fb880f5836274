/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package safety

import (
	"context"
	"path/filepath"
	"time"
)

// ValidateBlastRadius reports whether affecting `affected` out of `total`
// candidate resources stays within maxRatio. An empty population is always
// considered safe. The boundary at maxRatio is inclusive.
func ValidateBlastRadius(affected, total int, maxRatio float64) bool {
	if total == 0 {
		return true
	}
	ratio := float64(affected) / float64(total)
	return ratio <= maxRatio
}

// RequireConfirmation checks a target namespace against a glob pattern
// naming protected namespaces. If the namespace matches and confirmation was
// not explicitly granted, it returns ConfirmationRequiredError; otherwise nil.
// An empty pattern never matches.
func RequireConfirmation(namespace, pattern string, confirmed bool) error {
	if pattern == "" {
		return nil
	}
	matched, err := filepath.Match(pattern, namespace)
	if err != nil || !matched {
		return nil
	}
	if confirmed {
		return nil
	}
	return &ConfirmationRequiredError{Pattern: pattern, Namespace: namespace}
}

// ClampTimeoutSeconds clamps a requested timeout into [1,120].
func ClampTimeoutSeconds(seconds int) int {
	switch {
	case seconds < 1:
		return 1
	case seconds > 120:
		return 120
	default:
		return seconds
	}
}

// WithTimeout runs op with a deadline clamped to [1,120] seconds. If op does
// not return before the deadline, the context passed to op is cancelled and
// WithTimeout returns OperationTimeoutError{name, seconds}.
func WithTimeout(ctx context.Context, name string, seconds int, op func(context.Context) error) error {
	seconds = ClampTimeoutSeconds(seconds)
	ctx, cancel := context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return &OperationTimeoutError{Op: name, Seconds: seconds}
	}
}
