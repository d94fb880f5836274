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

	"github.com/spf13/cobra"
)

var (
	topologyNamespace string
	topologyProvider  string
)

var topologyCmd = &cobra.Command{
	Use:   "topology",
	Short: "View infrastructure topology",
	RunE:  runTopology,
}

func init() {
	topologyCmd.Flags().StringVar(&topologyNamespace, "namespace", "default", "k8s namespace")
	topologyCmd.Flags().StringVar(&topologyProvider, "provider", "combined", "k8s, aws, or combined")
	rootCmd.AddCommand(topologyCmd)
}

func runTopology(cmd *cobra.Command, args []string) error {
	var path string
	switch topologyProvider {
	case "k8s":
		path = fmt.Sprintf("/api/topology/k8s?namespace=%s", topologyNamespace)
	case "aws":
		path = "/api/topology/aws"
	case "combined":
		path = fmt.Sprintf("/api/topology/combined?namespace=%s", topologyNamespace)
	default:
		return fmt.Errorf("unknown provider %q: expected k8s, aws, or combined", topologyProvider)
	}

	result, err := apiGet(path)
	if err != nil {
		return err
	}
	return printJSON(result)
}
