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
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/client"
)

// New constructs the concrete Probe for a Descriptor, validating that
// Properties matches the declared Type. k8sClient may be nil if no k8s
// probes are in use.
func New(d Descriptor, k8sClient client.Client) (Probe, error) {
	switch d.Type {
	case KindHTTP:
		return NewHTTPProbe(d)
	case KindCmd:
		return NewCmdProbe(d)
	case KindK8s:
		if k8sClient == nil {
			return nil, fmt.Errorf("k8s probe %q: no kubernetes client configured", d.Name)
		}
		return NewK8sProbe(d, k8sClient)
	case KindPrometheus:
		return NewPrometheusProbe(d)
	default:
		return nil, fmt.Errorf("unknown probe type: %q", d.Type)
	}
}
