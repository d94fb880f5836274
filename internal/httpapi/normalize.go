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

package httpapi

import "strings"

// normalizePath replaces dynamic path segments (8-hex-char experiment ids
// and "dry-*" dry-run ids) with "{id}" so the http_requests_total metric
// stays low-cardinality, matching
// backend/observability/middleware.py's _normalize_path.
func normalizePath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if isEightHex(part) || strings.HasPrefix(part, "dry-") {
			parts[i] = "{id}"
		}
	}
	return "/" + strings.Join(parts, "/")
}

func isEightHex(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}
