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
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/go-logr/logr"

	"github.com/chaosduck/chaosduck/internal/safety"
)

// EC2Client is the narrow EC2 capability AwsActuator needs, satisfied by
// *ec2.Client.
type EC2Client interface {
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeRouteTables(ctx context.Context, params *ec2.DescribeRouteTablesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRouteTablesOutput, error)
	CreateRoute(ctx context.Context, params *ec2.CreateRouteInput, optFns ...func(*ec2.Options)) (*ec2.CreateRouteOutput, error)
	DeleteRoute(ctx context.Context, params *ec2.DeleteRouteInput, optFns ...func(*ec2.Options)) (*ec2.DeleteRouteOutput, error)
}

// RDSClient is the narrow RDS capability AwsActuator needs, satisfied by
// *rds.Client.
type RDSClient interface {
	FailoverDBCluster(ctx context.Context, params *rds.FailoverDBClusterInput, optFns ...func(*rds.Options)) (*rds.FailoverDBClusterOutput, error)
	DescribeDBClusters(ctx context.Context, params *rds.DescribeDBClustersInput, optFns ...func(*rds.Options)) (*rds.DescribeDBClustersOutput, error)
}

// AwsActuator actuates ec2_stop/rds_failover/route_blackhole. Grounded on
// backend/engines/aws_engine.py: every mutation returns a compensate
// closure; RDS failover's compensate is a documented no-op since the
// cluster is self-healing.
type AwsActuator struct {
	EC2 EC2Client
	RDS RDSClient
	Log logr.Logger
}

func (a *AwsActuator) Supports(t ChaosType) bool {
	switch t {
	case ChaosEC2Stop, ChaosRDSFailover, ChaosRouteBlackhole:
		return true
	default:
		return false
	}
}

// GetSteadyState is not meaningful for AWS-backed chaos types, which have no
// target_namespace; it returns a zero-value baseline.
func (a *AwsActuator) GetSteadyState(ctx context.Context, namespace string) (SteadyState, error) {
	return SteadyState{}, nil
}

func (a *AwsActuator) Actuate(ctx context.Context, emergencyStop *safety.EmergencyStop, req ActuateRequest) (map[string]any, safety.CompensateFunc, string, error) {
	if emergencyStop.IsSet() {
		return nil, nil, "", &safety.EmergencyStopActiveError{}
	}

	switch req.ChaosType {
	case ChaosEC2Stop:
		return a.stopEC2(ctx, req)
	case ChaosRDSFailover:
		return a.failoverRDS(ctx, req)
	case ChaosRouteBlackhole:
		return a.blackholeRoute(ctx, req)
	default:
		return nil, nil, "", fmt.Errorf("aws actuator does not support %s", req.ChaosType)
	}
}

func (a *AwsActuator) stopEC2(ctx context.Context, req ActuateRequest) (map[string]any, safety.CompensateFunc, string, error) {
	instanceID := req.Target.ResourceID
	if instanceID == "" {
		return nil, nil, "", fmt.Errorf("ec2_stop requires target.resource_id")
	}

	if req.Safety.DryRun {
		return map[string]any{"action": "stop_ec2", "instance_id": instanceID, "dry_run": true}, nil, "dry run: no mutation performed", nil
	}

	if _, err := a.EC2.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: []string{instanceID}}); err != nil {
		return nil, nil, "", &safety.ActuatorFailureError{ChaosType: string(req.ChaosType), Cause: err}
	}

	description := fmt.Sprintf("start EC2 instance %s", instanceID)
	compensate := func() (map[string]any, error) {
		// StartInstances on an already-running instance succeeds as a
		// no-op, satisfying the compensate-tolerates-drift contract.
		if _, err := a.EC2.StartInstances(context.Background(), &ec2.StartInstancesInput{InstanceIds: []string{instanceID}}); err != nil {
			return nil, err
		}
		return map[string]any{"started": instanceID}, nil
	}
	return map[string]any{"action": "stop_ec2", "instance_id": instanceID}, compensate, description, nil
}

func (a *AwsActuator) failoverRDS(ctx context.Context, req ActuateRequest) (map[string]any, safety.CompensateFunc, string, error) {
	clusterID := req.Target.ResourceID
	if clusterID == "" {
		return nil, nil, "", fmt.Errorf("rds_failover requires target.resource_id")
	}

	if req.Safety.DryRun {
		return map[string]any{"action": "rds_failover", "db_cluster_id": clusterID, "dry_run": true}, nil, "dry run: no mutation performed", nil
	}

	if _, err := a.RDS.FailoverDBCluster(ctx, &rds.FailoverDBClusterInput{DBClusterIdentifier: &clusterID}); err != nil {
		return nil, nil, "", &safety.ActuatorFailureError{ChaosType: string(req.ChaosType), Cause: err}
	}

	description := "rds failover is self-healing: compensate is a documented no-op"
	compensate := func() (map[string]any, error) {
		return map[string]any{"note": "RDS failover is self-healing"}, nil
	}
	return map[string]any{"action": "rds_failover", "db_cluster_id": clusterID}, compensate, description, nil
}

func (a *AwsActuator) blackholeRoute(ctx context.Context, req ActuateRequest) (map[string]any, safety.CompensateFunc, string, error) {
	routeTableID := req.Target.ResourceID
	if routeTableID == "" {
		return nil, nil, "", fmt.Errorf("route_blackhole requires target.resource_id")
	}
	cidr, _ := req.Parameters["destination_cidr"].(string)
	if cidr == "" {
		return nil, nil, "", fmt.Errorf("route_blackhole requires parameters.destination_cidr")
	}

	if req.Safety.DryRun {
		return map[string]any{"action": "route_blackhole", "route_table_id": routeTableID, "destination_cidr": cidr, "dry_run": true}, nil, "dry run: no mutation performed", nil
	}

	var originalGateway *string
	tables, err := a.EC2.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{RouteTableIds: []string{routeTableID}})
	if err == nil && len(tables.RouteTables) > 0 {
		for _, route := range tables.RouteTables[0].Routes {
			if route.DestinationCidrBlock != nil && *route.DestinationCidrBlock == cidr {
				originalGateway = route.GatewayId
				break
			}
		}
	}

	if _, err := a.EC2.CreateRoute(ctx, &ec2.CreateRouteInput{
		RouteTableId:         &routeTableID,
		DestinationCidrBlock: &cidr,
	}); err != nil {
		return nil, nil, "", &safety.ActuatorFailureError{ChaosType: string(req.ChaosType), Cause: err}
	}

	description := fmt.Sprintf("restore original route for %s in %s", cidr, routeTableID)
	compensate := func() (map[string]any, error) {
		_, err := a.EC2.DeleteRoute(context.Background(), &ec2.DeleteRouteInput{
			RouteTableId:         &routeTableID,
			DestinationCidrBlock: &cidr,
		})
		if err != nil {
			return nil, err
		}
		if originalGateway != nil {
			if _, err := a.EC2.CreateRoute(context.Background(), &ec2.CreateRouteInput{
				RouteTableId:         &routeTableID,
				DestinationCidrBlock: &cidr,
				GatewayId:            originalGateway,
			}); err != nil {
				return nil, err
			}
		}
		return map[string]any{"restored": cidr}, nil
	}
	return map[string]any{"action": "route_blackhole", "route_table_id": routeTableID, "destination_cidr": cidr}, compensate, description, nil
}

// DescribeEC2 satisfies safety.AwsSnapshotSource for drift comparison.
func (a *AwsActuator) DescribeEC2(ctx context.Context, instanceID string) (safety.EC2State, error) {
	out, err := a.EC2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: []string{instanceID}})
	if err != nil {
		return safety.EC2State{}, err
	}
	for _, res := range out.Reservations {
		for _, inst := range res.Instances {
			tags := map[string]string{}
			for _, t := range inst.Tags {
				if t.Key != nil && t.Value != nil {
					tags[*t.Key] = *t.Value
				}
			}
			var sgs []string
			for _, sg := range inst.SecurityGroups {
				if sg.GroupId != nil {
					sgs = append(sgs, *sg.GroupId)
				}
			}
			state := ""
			if inst.State != nil {
				state = string(inst.State.Name)
			}
			return safety.EC2State{
				InstanceID:     instanceID,
				InstanceType:   string(inst.InstanceType),
				State:          state,
				VPCID:          deref(inst.VpcId),
				SubnetID:       deref(inst.SubnetId),
				SecurityGroups: sgs,
				Tags:           tags,
			}, nil
		}
	}
	return safety.EC2State{}, fmt.Errorf("ec2 instance %s not found", instanceID)
}

// DescribeRDS satisfies safety.AwsSnapshotSource for drift comparison.
func (a *AwsActuator) DescribeRDS(ctx context.Context, clusterID string) (safety.RDSState, error) {
	out, err := a.RDS.DescribeDBClusters(ctx, &rds.DescribeDBClustersInput{DBClusterIdentifier: &clusterID})
	if err != nil {
		return safety.RDSState{}, err
	}
	if len(out.DBClusters) == 0 {
		return safety.RDSState{}, fmt.Errorf("rds cluster %s not found", clusterID)
	}
	cluster := out.DBClusters[0]

	var members []safety.RDSMember
	for _, m := range cluster.DBClusterMembers {
		members = append(members, safety.RDSMember{
			InstanceID: deref(m.DBInstanceIdentifier),
			IsWriter:   m.IsClusterWriter != nil && *m.IsClusterWriter,
		})
	}

	return safety.RDSState{
		ClusterID:      clusterID,
		Status:         deref(cluster.Status),
		Engine:         deref(cluster.Engine),
		EngineVersion:  deref(cluster.EngineVersion),
		Endpoint:       deref(cluster.Endpoint),
		ReaderEndpoint: deref(cluster.ReaderEndpoint),
		Members:        members,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
