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

// Package config loads chaosduckd's process configuration from the
// environment, grounded on the CACHE_* envconfig convention used by the
// distributed build cache's internal/config package.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
)

// Config is chaosduckd's full process configuration.
type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Database DatabaseConfig `envconfig:"DATABASE"`
	K8s      K8sConfig      `envconfig:"K8S"`
	Aws      AwsConfig      `envconfig:"AWS"`
	Analysis AnalysisConfig `envconfig:"ANALYSIS"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Port int `envconfig:"PORT" default:"8000"`
}

// DatabaseConfig configures the SQLite-backed experiment store.
type DatabaseConfig struct {
	URL string `envconfig:"URL" default:"sqlite:./chaosduck.db"`
}

// K8sConfig configures the Kubernetes client used by the k8s actuator,
// snapshot source, and topology discoverer.
type K8sConfig struct {
	Kubeconfig string `envconfig:"KUBECONFIG"` // empty: use in-cluster config
	Namespace  string `envconfig:"NAMESPACE" default:"default"`
}

// AwsConfig configures the AWS SDK session used by the aws actuator and
// topology discoverer. Region follows the SDK's standard env/shared-config
// resolution when empty.
type AwsConfig struct {
	Region string `envconfig:"REGION"`
}

// AnalysisConfig points at the external AI analysis service. An empty URL
// disables AI-assisted analysis: the /api/analysis/experiment/{id} endpoint
// returns an error rather than wiring a dead client.
type AnalysisConfig struct {
	URL string `envconfig:"URL"`
}

// Load reads Config from the environment, prefixed CHAOSDUCK_. When
// CHAOSDUCK_DATABASE_URL is unset, a non-empty plain DATABASE_URL is used
// for the database URL.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("CHAOSDUCK", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	if _, ok := os.LookupEnv("CHAOSDUCK_DATABASE_URL"); !ok {
		if url := os.Getenv("DATABASE_URL"); url != "" {
			cfg.Database.URL = url
		}
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	return &cfg, nil
}
