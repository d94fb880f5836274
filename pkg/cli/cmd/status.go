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

import "github.com/spf13/cobra"

var statusExperimentID string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check experiment status",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusExperimentID, "id", "", "experiment id (omit to list all)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	path := "/api/chaos/experiments"
	if statusExperimentID != "" {
		path += "/" + statusExperimentID
	}
	result, err := apiGet(path)
	if err != nil {
		return err
	}
	return printJSON(result)
}
