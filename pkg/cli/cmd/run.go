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

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	runChaosType string
	runNamespace string
	runLabels    string
	runTimeout   int
	runDryRun    bool
	runParams    []string
)

var runCmd = &cobra.Command{
	Use:   "run NAME",
	Short: "Run a chaos experiment",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runChaosType, "type", "", "chaos type (e.g. pod_delete, network_latency)")
	runCmd.Flags().StringVar(&runNamespace, "namespace", "default", "target namespace")
	runCmd.Flags().StringVar(&runLabels, "labels", "", "target labels (key=value,key=value)")
	runCmd.Flags().IntVar(&runTimeout, "timeout", 30, "timeout in seconds")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "dry run mode")
	runCmd.Flags().StringArrayVar(&runParams, "param", nil, "extra parameters (key=value)")
	_ = runCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	name := args[0]

	targetLabels := parsePairs(runLabels)
	parameters := map[string]any{}
	for _, p := range runParams {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return fmt.Errorf("invalid --param %q: expected key=value", p)
		}
		parameters[k] = v
	}

	config := map[string]any{
		"name":       name,
		"chaos_type": runChaosType,
		"target": map[string]any{
			"namespace": runNamespace,
			"labels":    targetLabels,
		},
		"parameters": parameters,
		"safety": map[string]any{
			"timeout_seconds": runTimeout,
			"dry_run":         runDryRun,
		},
	}

	endpoint := "/api/chaos/experiments"
	if runDryRun {
		endpoint = "/api/chaos/dry-run"
	}

	result, err := apiPost(endpoint, config)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func parsePairs(s string) map[string]string {
	if s == "" {
		return nil
	}
	out := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		if k, v, ok := strings.Cut(pair, "="); ok {
			out[k] = v
		}
	}
	return out
}
