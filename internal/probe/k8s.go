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
	"strconv"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// K8sProbe checks a deployment's ready-replica count or a pod's phase.
type K8sProbe struct {
	name           string
	mode           Mode
	Client         client.Client
	Namespace      string
	ResourceKind   string // "deployment" or "pod"
	ResourceName   string
	Condition      string
	ExpectedValue  string
}

// NewK8sProbe builds a K8sProbe from a Descriptor's properties map, bound
// to the given client.
func NewK8sProbe(d Descriptor, c client.Client) (*K8sProbe, error) {
	namespace, _ := d.Properties["namespace"].(string)
	if namespace == "" {
		namespace = "default"
	}
	kind, _ := d.Properties["resource_kind"].(string)
	if kind == "" {
		kind = "deployment"
	}
	name, _ := d.Properties["resource_name"].(string)
	if name == "" {
		return nil, fmt.Errorf("k8s probe %q: missing resource_name property", d.Name)
	}
	condition, _ := d.Properties["condition"].(string)
	if condition == "" {
		condition = "ready"
	}
	var expected string
	switch v := d.Properties["expected_value"].(type) {
	case string:
		expected = v
	case float64:
		expected = strconv.Itoa(int(v))
	}

	return &K8sProbe{
		name:          d.Name,
		mode:          d.Mode,
		Client:        c,
		Namespace:     namespace,
		ResourceKind:  kind,
		ResourceName:  name,
		Condition:     condition,
		ExpectedValue: expected,
	}, nil
}

func (p *K8sProbe) Name() string { return p.name }
func (p *K8sProbe) Kind() Kind   { return KindK8s }
func (p *K8sProbe) Mode() Mode   { return p.mode }

func (p *K8sProbe) SafeExecute(ctx context.Context) Result {
	return safeExecute(ctx, p.name, p.execute)
}

func (p *K8sProbe) execute(ctx context.Context) (bool, string, error) {
	switch p.ResourceKind {
	case "deployment":
		return p.checkDeployment(ctx)
	case "pod":
		return p.checkPod(ctx)
	default:
		return false, "", fmt.Errorf("unsupported resource kind: %s", p.ResourceKind)
	}
}

func (p *K8sProbe) checkDeployment(ctx context.Context) (bool, string, error) {
	dep := &appsv1.Deployment{}
	if err := p.Client.Get(ctx, types.NamespacedName{Namespace: p.Namespace, Name: p.ResourceName}, dep); err != nil {
		return false, "", fmt.Errorf("reading deployment %s/%s: %w", p.Namespace, p.ResourceName, err)
	}

	var desired int32
	if dep.Spec.Replicas != nil {
		desired = *dep.Spec.Replicas
	}
	ready := dep.Status.ReadyReplicas

	var passed bool
	if p.Condition == "ready" {
		if p.ExpectedValue != "" {
			expected, err := strconv.Atoi(p.ExpectedValue)
			if err != nil {
				return false, "", fmt.Errorf("invalid expected_value: %w", err)
			}
			passed = int(ready) >= expected
		} else {
			passed = ready == desired
		}
	} else {
		passed = ready == desired
	}

	detail := fmt.Sprintf("deployment=%s desired=%d ready=%d condition=%s", p.ResourceName, desired, ready, p.Condition)
	return passed, detail, nil
}

func (p *K8sProbe) checkPod(ctx context.Context) (bool, string, error) {
	pod := &corev1.Pod{}
	if err := p.Client.Get(ctx, types.NamespacedName{Namespace: p.Namespace, Name: p.ResourceName}, pod); err != nil {
		return false, "", fmt.Errorf("reading pod %s/%s: %w", p.Namespace, p.ResourceName, err)
	}

	expected := p.ExpectedValue
	if expected == "" {
		expected = string(corev1.PodRunning)
	}
	phase := string(pod.Status.Phase)
	passed := phase == expected

	detail := fmt.Sprintf("pod=%s phase=%s expected=%s", p.ResourceName, phase, expected)
	return passed, detail, nil
}
