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

package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"
)

// HTTPProbe validates that a URL returns an expected status code and,
// optionally, that the body matches a pattern.
type HTTPProbe struct {
	name           string
	mode           Mode
	Method         string
	URL            string
	ExpectedStatus int
	BodyPattern    string
	Headers        map[string]string
	Timeout        time.Duration
	client         *http.Client
}

// NewHTTPProbe builds an HTTPProbe from a Descriptor's properties map.
func NewHTTPProbe(d Descriptor) (*HTTPProbe, error) {
	url, _ := d.Properties["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("http probe %q: missing url property", d.Name)
	}
	method, _ := d.Properties["method"].(string)
	if method == "" {
		method = "GET"
	}
	expected := 200
	if v, ok := d.Properties["expected_status"].(float64); ok {
		expected = int(v)
	}
	body, _ := d.Properties["body_pattern"].(string)
	timeoutSeconds := 5.0
	if v, ok := d.Properties["timeout_seconds"].(float64); ok {
		timeoutSeconds = v
	}
	headers := map[string]string{}
	if raw, ok := d.Properties["headers"].(map[string]any); ok {
		for k, v := range raw {
			if s, ok := v.(string); ok {
				headers[k] = s
			}
		}
	}

	return &HTTPProbe{
		name:           d.Name,
		mode:           d.Mode,
		Method:         method,
		URL:            url,
		ExpectedStatus: expected,
		BodyPattern:    body,
		Headers:        headers,
		Timeout:        time.Duration(timeoutSeconds * float64(time.Second)),
		client:         &http.Client{Timeout: time.Duration(timeoutSeconds * float64(time.Second))},
	}, nil
}

func (p *HTTPProbe) Name() string { return p.name }
func (p *HTTPProbe) Kind() Kind   { return KindHTTP }
func (p *HTTPProbe) Mode() Mode   { return p.mode }

func (p *HTTPProbe) SafeExecute(ctx context.Context) Result {
	return safeExecute(ctx, p.name, p.execute)
}

func (p *HTTPProbe) execute(ctx context.Context) (bool, string, error) {
	req, err := http.NewRequestWithContext(ctx, p.Method, p.URL, nil)
	if err != nil {
		return false, "", fmt.Errorf("building request: %w", err)
	}
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	statusOK := resp.StatusCode == p.ExpectedStatus
	bodyOK := true
	var bodyText string
	if p.BodyPattern != "" && statusOK {
		raw, _ := io.ReadAll(resp.Body)
		bodyText = string(raw)
		re, err := regexp.Compile(p.BodyPattern)
		if err != nil {
			return false, "", fmt.Errorf("invalid body_pattern: %w", err)
		}
		bodyOK = re.MatchString(bodyText)
	}

	detail := fmt.Sprintf("status=%d expected=%d body_match=%v", resp.StatusCode, p.ExpectedStatus, bodyOK)
	return statusOK && bodyOK, detail, nil
}
