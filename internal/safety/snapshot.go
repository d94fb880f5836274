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
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// PodSnapshot records the fields of a pod needed for drift comparison.
type PodSnapshot struct {
	Name       string            `json:"name"`
	Namespace  string            `json:"namespace"`
	Labels     map[string]string `json:"labels"`
	Phase      string            `json:"phase"`
	Containers []ContainerRef    `json:"containers"`
	Node       string            `json:"node"`
}

// ContainerRef names a container and the image it runs.
type ContainerRef struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// DeploymentSnapshot records a deployment's replica and selector state.
type DeploymentSnapshot struct {
	Name          string            `json:"name"`
	Namespace     string            `json:"namespace"`
	Labels        map[string]string `json:"labels"`
	Replicas      int32             `json:"replicas"`
	ReadyReplicas int32             `json:"ready_replicas"`
	Selector      map[string]string `json:"selector"`
}

// ServicePort mirrors one exposed port of a service.
type ServicePort struct {
	Port       int32  `json:"port"`
	TargetPort string `json:"target_port"`
	Protocol   string `json:"protocol"`
}

// ServiceSnapshot records a service's type, cluster IP, and ports.
type ServiceSnapshot struct {
	Name      string            `json:"name"`
	Namespace string            `json:"namespace"`
	Labels    map[string]string `json:"labels"`
	Type      string            `json:"type"`
	ClusterIP string            `json:"cluster_ip"`
	Ports     []ServicePort     `json:"ports"`
}

// K8sResources is the captured resource population for one namespace/label
// selector.
type K8sResources struct {
	Pods        []PodSnapshot        `json:"pods"`
	Deployments []DeploymentSnapshot `json:"deployments"`
	Services    []ServiceSnapshot    `json:"services"`
}

// EC2State captures an EC2 instance's attributes for drift comparison.
type EC2State struct {
	InstanceID       string            `json:"instance_id"`
	InstanceType      string            `json:"instance_type"`
	State             string            `json:"state"`
	VPCID             string            `json:"vpc_id"`
	SubnetID          string            `json:"subnet_id"`
	SecurityGroups    []string          `json:"security_groups"`
	Tags              map[string]string `json:"tags"`
}

// RDSMember names one instance in an RDS cluster and whether it is the
// writer.
type RDSMember struct {
	InstanceID string `json:"instance_id"`
	IsWriter   bool   `json:"is_writer"`
}

// RDSState captures an RDS cluster's attributes for drift comparison.
type RDSState struct {
	ClusterID      string      `json:"cluster_id"`
	Status         string      `json:"status"`
	Engine         string      `json:"engine"`
	EngineVersion  string      `json:"engine_version"`
	Endpoint       string      `json:"endpoint"`
	ReaderEndpoint string      `json:"reader_endpoint"`
	Members        []RDSMember `json:"members"`
}

// Snapshot is a point-in-time capture of either a k8s namespace/selector or
// a single aws resource, keyed by experiment id.
type Snapshot struct {
	ExperimentID string        `json:"experiment_id"`
	Kind         string        `json:"kind"` // "k8s" or "aws"
	Namespace    string        `json:"namespace,omitempty"`
	Labels       map[string]string `json:"labels,omitempty"`
	ResourceType string        `json:"resource_type,omitempty"` // "ec2" or "rds"
	ResourceID   string        `json:"resource_id,omitempty"`
	CapturedAt   time.Time     `json:"captured_at"`
	Resources    *K8sResources `json:"resources,omitempty"`
	EC2          *EC2State     `json:"ec2,omitempty"`
	RDS          *RDSState     `json:"rds,omitempty"`
}

// K8sSnapshotSource lists the resource population a k8s snapshot captures.
// Implemented by internal/actuator's K8sActuator; injected so this package
// has no dependency on the k8s client stack.
type K8sSnapshotSource interface {
	ListPods(ctx context.Context, namespace string, labels map[string]string) ([]PodSnapshot, error)
	ListDeployments(ctx context.Context, namespace string, labels map[string]string) ([]DeploymentSnapshot, error)
	ListServices(ctx context.Context, namespace string, labels map[string]string) ([]ServiceSnapshot, error)
}

// AwsSnapshotSource reads current EC2/RDS state for drift comparison.
// Implemented by internal/actuator's AwsActuator.
type AwsSnapshotSource interface {
	DescribeEC2(ctx context.Context, instanceID string) (EC2State, error)
	DescribeRDS(ctx context.Context, clusterID string) (RDSState, error)
}

// SnapshotSink persists captured snapshots to an external store. Failures
// are logged and non-fatal.
type SnapshotSink interface {
	SaveSnapshot(ctx context.Context, snap Snapshot) error
}

// RestoreAction describes one piece of detected drift between a snapshot
// and current state. Restore is advisory: it reports drift, it does not
// itself perform recovery.
type RestoreAction struct {
	Action        string `json:"action"`
	Name          string `json:"name,omitempty"`
	InstanceID    string `json:"instance_id,omitempty"`
	SnapshotState string `json:"snapshot_state,omitempty"`
	CurrentState  string `json:"current_state,omitempty"`
}

// SnapshotStore captures pre-experiment state and supports advisory diffing
// against current state. Degradation on actuator failure never raises: an
// empty-but-timestamped snapshot is recorded instead.
type SnapshotStore struct {
	mu   sync.RWMutex
	byID map[string]Snapshot

	K8s  K8sSnapshotSource
	Aws  AwsSnapshotSource
	Sink SnapshotSink
	Log  logr.Logger
}

// NewSnapshotStore constructs an empty store. K8s/Aws/Sink may be nil if
// the corresponding capture kind or persistence is unused.
func NewSnapshotStore(k8s K8sSnapshotSource, aws AwsSnapshotSource, sink SnapshotSink, log logr.Logger) *SnapshotStore {
	return &SnapshotStore{
		byID: make(map[string]Snapshot),
		K8s:  k8s,
		Aws:  aws,
		Sink: sink,
		Log:  log,
	}
}

// CaptureK8s records the pod/deployment/service population in namespace
// matching labels. On K8s source failure, records an empty-but-timestamped
// snapshot and logs a warning rather than propagating the error.
func (s *SnapshotStore) CaptureK8s(ctx context.Context, id, namespace string, labels map[string]string) Snapshot {
	snap := Snapshot{
		ExperimentID: id,
		Kind:         "k8s",
		Namespace:    namespace,
		Labels:       labels,
		CapturedAt:   time.Now(),
		Resources:    &K8sResources{},
	}

	if s.K8s != nil {
		pods, err := s.K8s.ListPods(ctx, namespace, labels)
		if err != nil {
			s.Log.Info("snapshot capture degraded: failed to list pods", "experiment_id", id, "error", err.Error())
		} else {
			snap.Resources.Pods = pods
		}

		deps, err := s.K8s.ListDeployments(ctx, namespace, labels)
		if err != nil {
			s.Log.Info("snapshot capture degraded: failed to list deployments", "experiment_id", id, "error", err.Error())
		} else {
			snap.Resources.Deployments = deps
		}

		svcs, err := s.K8s.ListServices(ctx, namespace, labels)
		if err != nil {
			s.Log.Info("snapshot capture degraded: failed to list services", "experiment_id", id, "error", err.Error())
		} else {
			snap.Resources.Services = svcs
		}
	}

	s.store(ctx, id, snap)
	return snap
}

// CaptureAws records the current EC2/RDS state for one resource. On source
// failure, records an empty-but-timestamped snapshot and logs a warning.
func (s *SnapshotStore) CaptureAws(ctx context.Context, id, resourceType, resourceID string) Snapshot {
	snap := Snapshot{
		ExperimentID: id,
		Kind:         "aws",
		ResourceType: resourceType,
		ResourceID:   resourceID,
		CapturedAt:   time.Now(),
	}

	if s.Aws != nil {
		switch resourceType {
		case "ec2":
			state, err := s.Aws.DescribeEC2(ctx, resourceID)
			if err != nil {
				s.Log.Info("snapshot capture degraded: failed to describe ec2 instance", "experiment_id", id, "error", err.Error())
			} else {
				snap.EC2 = &state
			}
		case "rds":
			state, err := s.Aws.DescribeRDS(ctx, resourceID)
			if err != nil {
				s.Log.Info("snapshot capture degraded: failed to describe rds cluster", "experiment_id", id, "error", err.Error())
			} else {
				snap.RDS = &state
			}
		}
	}

	s.store(ctx, id, snap)
	return snap
}

func (s *SnapshotStore) store(ctx context.Context, id string, snap Snapshot) {
	s.mu.Lock()
	s.byID[id] = snap
	s.mu.Unlock()

	if s.Sink != nil {
		if err := s.Sink.SaveSnapshot(ctx, snap); err != nil {
			s.Log.Info("snapshot persistence failed", "experiment_id", id, "error", err.Error())
		}
	}
}

// Get returns the stored snapshot for id, if any.
func (s *SnapshotStore) Get(id string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.byID[id]
	return snap, ok
}

// RestoreFromSnapshot compares the stored snapshot for id against current
// state and reports detected drift. Returns nil if no snapshot exists. It
// is purely advisory — it never mutates infrastructure.
func (s *SnapshotStore) RestoreFromSnapshot(ctx context.Context, id string) []RestoreAction {
	snap, ok := s.Get(id)
	if !ok {
		return nil
	}

	var actions []RestoreAction

	switch snap.Kind {
	case "k8s":
		if snap.Resources == nil || s.K8s == nil {
			return actions
		}
		current, err := s.K8s.ListPods(ctx, snap.Namespace, snap.Labels)
		if err != nil {
			s.Log.Info("drift check degraded: failed to list current pods", "experiment_id", id, "error", err.Error())
			return actions
		}
		currentNames := make(map[string]bool, len(current))
		for _, p := range current {
			currentNames[p.Name] = true
		}
		for _, p := range snap.Resources.Pods {
			if !currentNames[p.Name] {
				actions = append(actions, RestoreAction{Action: "pod_missing", Name: p.Name})
			}
		}
	case "aws":
		if snap.ResourceType == "ec2" && snap.EC2 != nil && s.Aws != nil {
			current, err := s.Aws.DescribeEC2(ctx, snap.ResourceID)
			if err != nil {
				s.Log.Info("drift check degraded: failed to describe ec2 instance", "experiment_id", id, "error", err.Error())
				return actions
			}
			if current.State != snap.EC2.State {
				actions = append(actions, RestoreAction{
					Action:        "state_drift",
					InstanceID:    snap.ResourceID,
					SnapshotState: snap.EC2.State,
					CurrentState:  current.State,
				})
			}
		}
	}

	return actions
}
