package topology

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
)

type fakeK8sDiscoverer struct {
	deployments []appsv1.Deployment
	pods        []corev1.Pod
	services    []corev1.Service
}

func (f *fakeK8sDiscoverer) ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error) {
	return f.pods, nil
}
func (f *fakeK8sDiscoverer) ListDeployments(ctx context.Context, namespace string) ([]appsv1.Deployment, error) {
	return f.deployments, nil
}
func (f *fakeK8sDiscoverer) ListServices(ctx context.Context, namespace string) ([]corev1.Service, error) {
	return f.services, nil
}

type fakeAwsDiscoverer struct {
	instances *ec2.DescribeInstancesOutput
	clusters  *rds.DescribeDBClustersOutput
}

func (f *fakeAwsDiscoverer) DescribeAllInstances(ctx context.Context) (*ec2.DescribeInstancesOutput, error) {
	return f.instances, nil
}
func (f *fakeAwsDiscoverer) DescribeAllClusters(ctx context.Context) (*rds.DescribeDBClustersOutput, error) {
	return f.clusters, nil
}

func strp(s string) *string { return &s }

func TestDiscoverer_K8sGraph_EdgesPodsToOwningDeployment(t *testing.T) {
	k8s := &fakeK8sDiscoverer{
		deployments: []appsv1.Deployment{
			{ObjectMeta: metav1.ObjectMeta{Name: "web"}, Status: appsv1.DeploymentStatus{Replicas: 1, ReadyReplicas: 1}},
		},
		pods: []corev1.Pod{
			{
				ObjectMeta: metav1.ObjectMeta{Name: "web-7c9d-abc", OwnerReferences: []metav1.OwnerReference{{Kind: "ReplicaSet"}}},
				Status:     corev1.PodStatus{Phase: corev1.PodRunning},
			},
		},
	}
	d := &Discoverer{K8s: k8s}

	g, err := d.K8sGraph(t.Context(), "default")
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "deploy/web", g.Edges[0].Source)
	assert.Equal(t, "pod/web-7c9d-abc", g.Edges[0].Target)
}

func TestDiscoverer_K8sGraph_NoDiscovererErrors(t *testing.T) {
	d := &Discoverer{}
	_, err := d.K8sGraph(t.Context(), "default")
	assert.ErrorContains(t, err, "no kubernetes discoverer configured")
}

func TestDiscoverer_AwsGraph_MapsInstanceAndClusterHealth(t *testing.T) {
	aws := &fakeAwsDiscoverer{
		instances: &ec2.DescribeInstancesOutput{
			Reservations: []ec2types.Reservation{{
				Instances: []ec2types.Instance{{
					InstanceId: strp("i-1"),
					State:      &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning},
					Tags:       []ec2types.Tag{{Key: strp("Name"), Value: strp("web-node")}},
				}},
			}},
		},
		clusters: &rds.DescribeDBClustersOutput{
			DBClusters: []rdstypes.DBCluster{{DBClusterIdentifier: strp("cluster-1"), Status: strp("available")}},
		},
	}
	d := &Discoverer{Aws: aws}

	g, err := d.AwsGraph(t.Context())
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "web-node", g.Nodes[0].Name)
	assert.Equal(t, HealthHealthy, g.Nodes[0].Health)
	assert.Equal(t, HealthHealthy, g.Nodes[1].Health)
}

func TestDiscoverer_Combined_MergesBothGraphs(t *testing.T) {
	d := &Discoverer{
		K8s: &fakeK8sDiscoverer{services: []corev1.Service{{ObjectMeta: metav1.ObjectMeta{Name: "web"}}}},
		Aws: &fakeAwsDiscoverer{instances: &ec2.DescribeInstancesOutput{}, clusters: &rds.DescribeDBClustersOutput{}},
	}

	g, err := d.Combined(t.Context(), "default")
	require.NoError(t, err)
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, ResourceService, g.Nodes[0].ResourceType)
}
