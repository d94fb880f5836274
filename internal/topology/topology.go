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

// Package topology discovers the current Kubernetes and AWS resource graph
// for display and for AI hypothesis generation, composing the same clients
// internal/actuator uses to inject chaos.
package topology

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
)

// ResourceType classifies a Node.
type ResourceType string

const (
	ResourcePod        ResourceType = "pod"
	ResourceService    ResourceType = "service"
	ResourceDeployment ResourceType = "deployment"
	ResourceEC2        ResourceType = "ec2"
	ResourceRDS        ResourceType = "rds"
)

// HealthStatus is a coarse health classification for display.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthUnknown   HealthStatus = "unknown"
)

// Node is one resource in the infrastructure graph.
type Node struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	ResourceType ResourceType      `json:"resource_type"`
	Namespace    string            `json:"namespace,omitempty"`
	Labels       map[string]string `json:"labels,omitempty"`
	Health       HealthStatus      `json:"health"`
	Metadata     map[string]any    `json:"metadata,omitempty"`
}

// Edge is a directed relationship between two nodes.
type Edge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// Graph is the full discovered topology for one provider, or the union of
// both when combined.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// K8sDiscoverer lists the resources needed to build a namespace's topology.
type K8sDiscoverer interface {
	ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error)
	ListDeployments(ctx context.Context, namespace string) ([]appsv1.Deployment, error)
	ListServices(ctx context.Context, namespace string) ([]corev1.Service, error)
}

// AwsDiscoverer lists the AWS resources needed to build a topology.
type AwsDiscoverer interface {
	DescribeAllInstances(ctx context.Context) (*ec2.DescribeInstancesOutput, error)
	DescribeAllClusters(ctx context.Context) (*rds.DescribeDBClustersOutput, error)
}

// ClientK8sDiscoverer implements K8sDiscoverer directly over a
// controller-runtime client, the same one internal/actuator's K8sActuator
// uses to inject chaos, without reusing its snapshot-capture methods (whose
// signatures carry a label selector this discoverer does not need).
type ClientK8sDiscoverer struct {
	Client client.Client
}

func (d *ClientK8sDiscoverer) ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error) {
	var list corev1.PodList
	if err := d.Client.List(ctx, &list, client.InNamespace(namespace)); err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (d *ClientK8sDiscoverer) ListDeployments(ctx context.Context, namespace string) ([]appsv1.Deployment, error) {
	var list appsv1.DeploymentList
	if err := d.Client.List(ctx, &list, client.InNamespace(namespace)); err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (d *ClientK8sDiscoverer) ListServices(ctx context.Context, namespace string) ([]corev1.Service, error) {
	var list corev1.ServiceList
	if err := d.Client.List(ctx, &list, client.InNamespace(namespace)); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// EC2API and RDSAPI are the narrow account-wide-describe capabilities
// ClientAwsDiscoverer needs, satisfied by *ec2.Client and *rds.Client.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

type RDSAPI interface {
	DescribeDBClusters(ctx context.Context, params *rds.DescribeDBClustersInput, optFns ...func(*rds.Options)) (*rds.DescribeDBClustersOutput, error)
}

// ClientAwsDiscoverer implements AwsDiscoverer directly over the AWS SDK
// clients, the same ones internal/actuator's AwsActuator uses to inject
// chaos.
type ClientAwsDiscoverer struct {
	EC2 EC2API
	RDS RDSAPI
}

func (d *ClientAwsDiscoverer) DescribeAllInstances(ctx context.Context) (*ec2.DescribeInstancesOutput, error) {
	return d.EC2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{})
}

func (d *ClientAwsDiscoverer) DescribeAllClusters(ctx context.Context) (*rds.DescribeDBClustersOutput, error) {
	return d.RDS.DescribeDBClusters(ctx, &rds.DescribeDBClustersInput{})
}

// Discoverer composes the two provider discoverers into combined graphs.
type Discoverer struct {
	K8s K8sDiscoverer
	Aws AwsDiscoverer
}

// K8sGraph builds the graph for one namespace: deployments, pods (edged to
// their owning deployment by name prefix, matching the original engine's
// heuristic), and services.
func (d *Discoverer) K8sGraph(ctx context.Context, namespace string) (Graph, error) {
	if d.K8s == nil {
		return Graph{}, fmt.Errorf("no kubernetes discoverer configured")
	}

	var g Graph

	deployments, err := d.K8s.ListDeployments(ctx, namespace)
	if err != nil {
		return Graph{}, fmt.Errorf("listing deployments: %w", err)
	}
	for _, dep := range deployments {
		health := HealthDegraded
		if dep.Status.ReadyReplicas == dep.Status.Replicas {
			health = HealthHealthy
		}
		g.Nodes = append(g.Nodes, Node{
			ID:           "deploy/" + dep.Name,
			Name:         dep.Name,
			ResourceType: ResourceDeployment,
			Namespace:    namespace,
			Labels:       dep.Labels,
			Health:       health,
		})
	}

	pods, err := d.K8s.ListPods(ctx, namespace)
	if err != nil {
		return Graph{}, fmt.Errorf("listing pods: %w", err)
	}
	for _, pod := range pods {
		podID := "pod/" + pod.Name
		health := healthForPodPhase(string(pod.Status.Phase))
		g.Nodes = append(g.Nodes, Node{
			ID:           podID,
			Name:         pod.Name,
			ResourceType: ResourcePod,
			Namespace:    namespace,
			Labels:       pod.Labels,
			Health:       health,
		})
		for _, dep := range deployments {
			if ownedByReplicaSet(pod) && hasPrefix(pod.Name, dep.Name) {
				g.Edges = append(g.Edges, Edge{Source: "deploy/" + dep.Name, Target: podID, Relation: "manages"})
			}
		}
	}

	services, err := d.K8s.ListServices(ctx, namespace)
	if err != nil {
		return Graph{}, fmt.Errorf("listing services: %w", err)
	}
	for _, svc := range services {
		g.Nodes = append(g.Nodes, Node{
			ID:           "svc/" + svc.Name,
			Name:         svc.Name,
			ResourceType: ResourceService,
			Namespace:    namespace,
			Labels:       svc.Labels,
			Health:       HealthHealthy,
		})
	}

	return g, nil
}

// AwsGraph builds the graph of every visible EC2 instance and RDS cluster.
func (d *Discoverer) AwsGraph(ctx context.Context) (Graph, error) {
	if d.Aws == nil {
		return Graph{}, fmt.Errorf("no aws discoverer configured")
	}

	var g Graph

	instances, err := d.Aws.DescribeAllInstances(ctx)
	if err != nil {
		return Graph{}, fmt.Errorf("describing ec2 instances: %w", err)
	}
	for _, res := range instances.Reservations {
		for _, inst := range res.Instances {
			if inst.InstanceId == nil {
				continue
			}
			id := *inst.InstanceId
			tags := map[string]string{}
			name := id
			for _, t := range inst.Tags {
				if t.Key != nil && t.Value != nil {
					tags[*t.Key] = *t.Value
					if *t.Key == "Name" {
						name = *t.Value
					}
				}
			}
			state := ""
			if inst.State != nil {
				state = string(inst.State.Name)
			}
			g.Nodes = append(g.Nodes, Node{
				ID:           id,
				Name:         name,
				ResourceType: ResourceEC2,
				Labels:       tags,
				Health:       healthForEC2State(state),
				Metadata:     map[string]any{"state": state, "instance_type": string(inst.InstanceType)},
			})
			if inst.VpcId != nil {
				g.Edges = append(g.Edges, Edge{Source: *inst.VpcId, Target: id, Relation: "contains"})
			}
		}
	}

	clusters, err := d.Aws.DescribeAllClusters(ctx)
	if err != nil {
		return Graph{}, fmt.Errorf("describing rds clusters: %w", err)
	}
	for _, cluster := range clusters.DBClusters {
		if cluster.DBClusterIdentifier == nil {
			continue
		}
		id := *cluster.DBClusterIdentifier
		status := ""
		if cluster.Status != nil {
			status = *cluster.Status
		}
		engine := ""
		if cluster.Engine != nil {
			engine = *cluster.Engine
		}
		health := HealthDegraded
		if status == "available" {
			health = HealthHealthy
		}
		g.Nodes = append(g.Nodes, Node{
			ID:           id,
			Name:         id,
			ResourceType: ResourceRDS,
			Health:       health,
			Metadata:     map[string]any{"engine": engine, "status": status},
		})
	}

	return g, nil
}

// Combined merges the k8s and aws graphs for one namespace.
func (d *Discoverer) Combined(ctx context.Context, namespace string) (Graph, error) {
	k8sGraph, err := d.K8sGraph(ctx, namespace)
	if err != nil {
		return Graph{}, err
	}
	awsGraph, err := d.AwsGraph(ctx)
	if err != nil {
		return Graph{}, err
	}
	return Graph{
		Nodes: append(k8sGraph.Nodes, awsGraph.Nodes...),
		Edges: append(k8sGraph.Edges, awsGraph.Edges...),
	}, nil
}

func healthForPodPhase(phase string) HealthStatus {
	switch phase {
	case "Running":
		return HealthHealthy
	case "Failed":
		return HealthUnhealthy
	default:
		return HealthUnknown
	}
}

func healthForEC2State(state string) HealthStatus {
	switch state {
	case "running":
		return HealthHealthy
	case "stopped":
		return HealthUnhealthy
	default:
		return HealthUnknown
	}
}

func ownedByReplicaSet(pod corev1.Pod) bool {
	for _, owner := range pod.OwnerReferences {
		if owner.Kind == "ReplicaSet" {
			return true
		}
	}
	return false
}

func hasPrefix(name, prefix string) bool {
	return len(name) >= len(prefix) && name[:len(prefix)] == prefix
}
