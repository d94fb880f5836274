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
	"bytes"
	"context"
	"fmt"
	"math/rand"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/chaosduck/chaosduck/internal/safety"
)

// K8sActuator actuates pod_delete/network_latency/network_loss/cpu_stress/
// memory_stress against a cluster: list eligible pods by label selector,
// shuffle, act on a bounded count.
type K8sActuator struct {
	Client     client.Client
	Clientset  kubernetes.Interface
	RestConfig *rest.Config
	Log        logr.Logger
}

func (a *K8sActuator) Supports(t ChaosType) bool {
	switch t {
	case ChaosPodDelete, ChaosNetworkLatency, ChaosNetworkLoss, ChaosCPUStress, ChaosMemoryStress:
		return true
	default:
		return false
	}
}

func (a *K8sActuator) Actuate(ctx context.Context, emergencyStop *safety.EmergencyStop, req ActuateRequest) (map[string]any, safety.CompensateFunc, string, error) {
	if emergencyStop.IsSet() {
		return nil, nil, "", &safety.EmergencyStopActiveError{}
	}

	if err := safety.RequireConfirmation(req.Target.Namespace, req.Safety.NamespacePattern, req.Safety.RequireConfirm); err != nil {
		return nil, nil, "", err
	}

	pods, err := a.listPods(ctx, req.Target.Namespace, req.Target.Labels)
	if err != nil {
		return nil, nil, "", &safety.ActuatorFailureError{ChaosType: string(req.ChaosType), Cause: err}
	}

	totalPods, err := a.countAllPods(ctx, req.Target.Namespace)
	if err != nil {
		return nil, nil, "", &safety.ActuatorFailureError{ChaosType: string(req.ChaosType), Cause: err}
	}

	if !safety.ValidateBlastRadius(len(pods), totalPods, req.Safety.MaxBlastRadius) {
		return nil, nil, "", &safety.BlastRadiusExceededError{Affected: len(pods), Total: totalPods, MaxRatio: req.Safety.MaxBlastRadius}
	}

	count := intParam(req.Parameters, "count", 1)
	if count > len(pods) {
		count = len(pods)
	}

	if req.Safety.DryRun {
		names := podNames(pods)
		return map[string]any{"dry_run": true, "would_affect": names[:min(count, len(names))]}, nil, "dry run: no mutation performed", nil
	}

	rand.Shuffle(len(pods), func(i, j int) { pods[i], pods[j] = pods[j], pods[i] })
	targets := pods[:count]

	switch req.ChaosType {
	case ChaosPodDelete:
		return a.actuatePodDelete(ctx, targets)
	case ChaosNetworkLatency:
		return a.actuateTrafficControl(ctx, targets, "network_latency", req.Parameters)
	case ChaosNetworkLoss:
		return a.actuateTrafficControl(ctx, targets, "network_loss", req.Parameters)
	case ChaosCPUStress:
		return a.actuateStress(ctx, targets, "cpu", req.Parameters)
	case ChaosMemoryStress:
		return a.actuateStress(ctx, targets, "memory", req.Parameters)
	default:
		return nil, nil, "", fmt.Errorf("k8s actuator does not support %s", req.ChaosType)
	}
}

func (a *K8sActuator) actuatePodDelete(ctx context.Context, targets []corev1.Pod) (map[string]any, safety.CompensateFunc, string, error) {
	var deleted []string
	for _, pod := range targets {
		if err := a.Client.Delete(ctx, &pod); err != nil && !apierrors.IsNotFound(err) {
			a.Log.Error(err, "failed to delete pod", "pod", pod.Name, "namespace", pod.Namespace)
			continue
		}
		deleted = append(deleted, pod.Name)
	}
	if len(deleted) == 0 {
		return nil, nil, "", fmt.Errorf("failed to delete any pods")
	}

	description := fmt.Sprintf("recreate %d deleted pod(s)", len(deleted))
	compensate := func() (map[string]any, error) {
		// Recreation is left to the owning controller (Deployment/
		// ReplicaSet). This compensate neither recreates pods nor checks
		// that replacements exist; it only reports the deleted names.
		return map[string]any{"recreated_by_controller": deleted}, nil
	}
	return map[string]any{"deleted_pods": deleted}, compensate, description, nil
}

func (a *K8sActuator) actuateTrafficControl(ctx context.Context, targets []corev1.Pod, mode string, params map[string]any) (map[string]any, safety.CompensateFunc, string, error) {
	delayMs := intParam(params, "latency_ms", 100)
	lossPct := intParam(params, "loss_percent", 10)

	var affected []string
	var addCmd, delCmd string
	switch mode {
	case "network_latency":
		addCmd = fmt.Sprintf("tc qdisc add dev eth0 root netem delay %dms", delayMs)
		delCmd = "tc qdisc del dev eth0 root netem"
	case "network_loss":
		addCmd = fmt.Sprintf("tc qdisc add dev eth0 root netem loss %d%%", lossPct)
		delCmd = "tc qdisc del dev eth0 root netem"
	}

	for _, pod := range targets {
		if err := a.execInPod(ctx, pod, addCmd); err != nil {
			a.Log.Error(err, "failed to inject traffic control rule", "pod", pod.Name)
			continue
		}
		affected = append(affected, pod.Name)
	}
	if len(affected) == 0 {
		return nil, nil, "", fmt.Errorf("failed to apply %s to any pod", mode)
	}

	podsCopy := targets
	description := fmt.Sprintf("remove tc qdisc rule from %d pod(s)", len(affected))
	compensate := func() (map[string]any, error) {
		var cleaned []string
		for _, pod := range podsCopy {
			// Idempotent: deleting a qdisc that no longer exists is a no-op
			// from the operator's perspective — errors are swallowed here
			// and merely omit the pod from `cleaned`.
			if err := a.execInPod(context.Background(), pod, delCmd); err == nil {
				cleaned = append(cleaned, pod.Name)
			}
		}
		return map[string]any{"cleaned_pods": cleaned}, nil
	}
	return map[string]any{"affected_pods": affected, "mode": mode}, compensate, description, nil
}

func (a *K8sActuator) actuateStress(ctx context.Context, targets []corev1.Pod, kind string, params map[string]any) (map[string]any, safety.CompensateFunc, string, error) {
	durationSeconds := intParam(params, "duration_seconds", 60)

	var cmd string
	switch kind {
	case "cpu":
		workers := intParam(params, "cpu_workers", 1)
		cmd = fmt.Sprintf("stress-ng --cpu %d --timeout %ds &", workers, durationSeconds)
	case "memory":
		size, _ := params["memory_size"].(string)
		if size == "" {
			size = "256M"
		}
		workers := intParam(params, "memory_workers", 1)
		cmd = fmt.Sprintf("stress-ng --vm %d --vm-bytes %s --timeout %ds &", workers, size, durationSeconds)
	}

	var affected []string
	for _, pod := range targets {
		if err := a.execInPod(ctx, pod, cmd); err != nil {
			a.Log.Error(err, "failed to start stress-ng", "pod", pod.Name)
			continue
		}
		affected = append(affected, pod.Name)
	}
	if len(affected) == 0 {
		return nil, nil, "", fmt.Errorf("failed to start %s stress on any pod", kind)
	}

	description := fmt.Sprintf("stress-ng on %d pod(s) self-terminates after %ds", len(affected), durationSeconds)
	compensate := func() (map[string]any, error) {
		// stress-ng's own --timeout bounds the blast radius in time;
		// compensate is a best-effort early pkill, tolerant of the process
		// having already exited.
		for _, pod := range targets {
			_ = a.execInPod(context.Background(), pod, "pkill stress-ng || true")
		}
		return map[string]any{"stopped": true}, nil
	}
	return map[string]any{"affected_pods": affected, "kind": kind}, compensate, description, nil
}

func (a *K8sActuator) execInPod(ctx context.Context, pod corev1.Pod, command string) error {
	if a.RestConfig == nil || a.Clientset == nil {
		return fmt.Errorf("exec not configured")
	}
	req := a.Clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Name(pod.Name).
		Namespace(pod.Namespace).
		SubResource("exec")
	req.VersionedParams(&corev1.PodExecOptions{
		Command: []string{"sh", "-c", command},
		Stdout:  true,
		Stderr:  true,
	}, scheme.ParameterCodec)

	executor, err := remotecommand.NewSPDYExecutor(a.RestConfig, "POST", req.URL())
	if err != nil {
		return err
	}

	var stdout, stderr bytes.Buffer
	return executor.Stream(remotecommand.StreamOptions{Stdout: &stdout, Stderr: &stderr})
}

func (a *K8sActuator) listPods(ctx context.Context, namespace string, labels map[string]string) ([]corev1.Pod, error) {
	var list corev1.PodList
	if err := a.Client.List(ctx, &list, client.InNamespace(namespace), client.MatchingLabels(labels)); err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (a *K8sActuator) countAllPods(ctx context.Context, namespace string) (int, error) {
	var list corev1.PodList
	if err := a.Client.List(ctx, &list, client.InNamespace(namespace)); err != nil {
		return 0, err
	}
	return len(list.Items), nil
}

// GetSteadyState returns the current pod population's health ratio for
// namespace.
func (a *K8sActuator) GetSteadyState(ctx context.Context, namespace string) (SteadyState, error) {
	var list corev1.PodList
	if err := a.Client.List(ctx, &list, client.InNamespace(namespace)); err != nil {
		return SteadyState{}, err
	}

	total := len(list.Items)
	running := 0
	for _, pod := range list.Items {
		if pod.Status.Phase == corev1.PodRunning {
			running++
		}
	}

	ratio := 1.0
	if total > 0 {
		ratio = float64(running) / float64(total)
	}
	return SteadyState{PodsTotal: total, PodsRunning: running, PodsHealthyRatio: ratio}, nil
}

func podNames(pods []corev1.Pod) []string {
	names := make([]string, len(pods))
	for i, p := range pods {
		names[i] = p.Name
	}
	return names
}

func intParam(params map[string]any, key string, def int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return def
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
