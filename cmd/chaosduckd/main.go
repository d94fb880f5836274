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

// Command chaosduckd runs the chaos experiment engine's HTTP API: the
// ExperimentRunner, its safety guardrails, and the k8s/aws actuators wired
// against a real cluster and AWS account.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/go-logr/logr"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/chaosduck/chaosduck/internal/actuator"
	"github.com/chaosduck/chaosduck/internal/analysis"
	"github.com/chaosduck/chaosduck/internal/config"
	"github.com/chaosduck/chaosduck/internal/experiment"
	"github.com/chaosduck/chaosduck/internal/httpapi"
	"github.com/chaosduck/chaosduck/internal/safety"
	"github.com/chaosduck/chaosduck/internal/storage"
	"github.com/chaosduck/chaosduck/internal/topology"
)

func main() {
	log := zap.New(zap.UseDevMode(true))
	ctrl.SetLogger(log)

	if err := run(log); err != nil {
		log.Error(err, "chaosduckd exited with error")
		os.Exit(1)
	}
}

func run(log logr.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := storage.Open(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	k8sClient, clientset, restConfig, err := buildK8sClient(cfg.K8s.Kubeconfig)
	if err != nil {
		log.Info("k8s client unavailable: k8s-backed chaos types and probes will fail", "error", err.Error())
	}

	ctx := context.Background()
	ec2Client, rdsClient, err := buildAwsClients(ctx, cfg.Aws.Region)
	if err != nil {
		log.Info("aws clients unavailable: aws-backed chaos types will fail", "error", err.Error())
	}

	var actuators []actuator.Actuator
	if k8sClient != nil {
		actuators = append(actuators, &actuator.K8sActuator{
			Client:     k8sClient,
			Clientset:  clientset,
			RestConfig: restConfig,
			Log:        log.WithName("k8s-actuator"),
		})
	}
	if ec2Client != nil && rdsClient != nil {
		actuators = append(actuators, &actuator.AwsActuator{
			EC2: ec2Client,
			RDS: rdsClient,
			Log: log.WithName("aws-actuator"),
		})
	}

	var k8sSnapshotSource safety.K8sSnapshotSource
	var awsSnapshotSource safety.AwsSnapshotSource
	for _, a := range actuators {
		if k8sAct, ok := a.(*actuator.K8sActuator); ok {
			k8sSnapshotSource = k8sAct
		}
		if awsAct, ok := a.(*actuator.AwsActuator); ok {
			awsSnapshotSource = awsAct
		}
	}

	snapshots := safety.NewSnapshotStore(k8sSnapshotSource, awsSnapshotSource, db.Snapshots(), log.WithName("snapshots"))
	rollback := safety.NewRollbackStack()
	emergencyStop := safety.NewEmergencyStop()

	runner := &experiment.Runner{
		EmergencyStop: emergencyStop,
		Rollback:      rollback,
		Snapshots:     snapshots,
		Actuators:     actuators,
		Store:         db.ExperimentStore(),
		ProbeResults:  db.Probes(),
		K8sClient:     k8sClient,
		Log:           log.WithName("runner"),
	}

	disco := &topology.Discoverer{}
	if k8sClient != nil {
		disco.K8s = &topology.ClientK8sDiscoverer{Client: k8sClient}
	}
	if ec2Client != nil && rdsClient != nil {
		disco.Aws = &topology.ClientAwsDiscoverer{EC2: ec2Client, RDS: rdsClient}
	}

	var analysisClient *analysis.Client
	var analysisStore httpapi.AnalysisSink
	if cfg.Analysis.URL != "" {
		analysisClient = analysis.NewClient(cfg.Analysis.URL)
		analysisStore = db.Analysis()
	}

	server := httpapi.NewServer(runner, emergencyStop, disco, analysisClient, analysisStore, log.WithName("httpapi"))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// buildK8sClient constructs a controller-runtime client from kubeconfigPath
// if set, otherwise falls back to the in-cluster config for non-interactive
// daemon use.
func buildK8sClient(kubeconfigPath string) (client.Client, kubernetes.Interface, *rest.Config, error) {
	restConfig, err := loadRestConfig(kubeconfigPath)
	if err != nil {
		return nil, nil, nil, err
	}

	c, err := client.New(restConfig, client.Options{})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("constructing k8s client: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("constructing k8s clientset: %w", err)
	}

	return c, clientset, restConfig, nil
}

func loadRestConfig(kubeconfigPath string) (*rest.Config, error) {
	if kubeconfigPath == "" {
		if cfg, err := rest.InClusterConfig(); err == nil {
			return cfg, nil
		}
		kubeconfigPath = clientcmd.RecommendedHomeFile
	}
	cfg, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("building kubeconfig from %q: %w", kubeconfigPath, err)
	}
	return cfg, nil
}

// buildAwsClients loads the default AWS SDK config (environment, shared
// config, or EC2/ECS instance role, in that order) and constructs the EC2
// and RDS clients AwsActuator and the topology discoverer need.
func buildAwsClients(ctx context.Context, region string) (*ec2.Client, *rds.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("loading aws config: %w", err)
	}
	return ec2.NewFromConfig(cfg), rds.NewFromConfig(cfg), nil
}
