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

package actuator

import (
	"context"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/chaosduck/chaosduck/internal/safety"
)

// The methods in this file make K8sActuator satisfy safety.K8sSnapshotSource,
// so SnapshotStore can capture baseline state through the same client the
// actuator uses to inject chaos.

func (a *K8sActuator) ListPods(ctx context.Context, namespace string, labels map[string]string) ([]safety.PodSnapshot, error) {
	var list corev1.PodList
	if err := a.Client.List(ctx, &list, client.InNamespace(namespace), client.MatchingLabels(labels)); err != nil {
		return nil, err
	}

	out := make([]safety.PodSnapshot, 0, len(list.Items))
	for _, pod := range list.Items {
		containers := make([]safety.ContainerRef, 0, len(pod.Spec.Containers))
		for _, c := range pod.Spec.Containers {
			containers = append(containers, safety.ContainerRef{Name: c.Name, Image: c.Image})
		}
		out = append(out, safety.PodSnapshot{
			Name:       pod.Name,
			Namespace:  pod.Namespace,
			Labels:     pod.Labels,
			Phase:      string(pod.Status.Phase),
			Containers: containers,
			Node:       pod.Spec.NodeName,
		})
	}
	return out, nil
}

func (a *K8sActuator) ListDeployments(ctx context.Context, namespace string, labels map[string]string) ([]safety.DeploymentSnapshot, error) {
	var list appsv1.DeploymentList
	if err := a.Client.List(ctx, &list, client.InNamespace(namespace), client.MatchingLabels(labels)); err != nil {
		return nil, err
	}

	out := make([]safety.DeploymentSnapshot, 0, len(list.Items))
	for _, dep := range list.Items {
		var replicas int32
		if dep.Spec.Replicas != nil {
			replicas = *dep.Spec.Replicas
		}
		var selector map[string]string
		if dep.Spec.Selector != nil {
			selector = dep.Spec.Selector.MatchLabels
		}
		out = append(out, safety.DeploymentSnapshot{
			Name:          dep.Name,
			Namespace:     dep.Namespace,
			Labels:        dep.Labels,
			Replicas:      replicas,
			ReadyReplicas: dep.Status.ReadyReplicas,
			Selector:      selector,
		})
	}
	return out, nil
}

func (a *K8sActuator) ListServices(ctx context.Context, namespace string, labels map[string]string) ([]safety.ServiceSnapshot, error) {
	var list corev1.ServiceList
	if err := a.Client.List(ctx, &list, client.InNamespace(namespace), client.MatchingLabels(labels)); err != nil {
		return nil, err
	}

	out := make([]safety.ServiceSnapshot, 0, len(list.Items))
	for _, svc := range list.Items {
		ports := make([]safety.ServicePort, 0, len(svc.Spec.Ports))
		for _, p := range svc.Spec.Ports {
			ports = append(ports, safety.ServicePort{
				Port:       p.Port,
				TargetPort: p.TargetPort.String(),
				Protocol:   string(p.Protocol),
			})
		}
		out = append(out, safety.ServiceSnapshot{
			Name:      svc.Name,
			Namespace: svc.Namespace,
			Labels:    svc.Labels,
			Type:      string(svc.Spec.Type),
			ClusterIP: svc.Spec.ClusterIP,
			Ports:     ports,
		})
	}
	return out, nil
}
