// Copyright 2010-2024 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command epsilon solves encoded problems with prox-ADMM.
//
//	epsilon solve --problem problem.bin --data A=a.bin --config epsilon.yaml
package main

import (
	"flag"
	"os"

	log "github.com/golang/glog"
	"github.com/spf13/cobra"
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:           "epsilon",
	Short:         "Solve convex problems with prox-ADMM",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println("epsilon", version)
	},
}

func init() {
	// glog registers its flags on the standard flag set.
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	rootCmd.AddCommand(newSolveCmd(), versionCmd)
}

func main() {
	// Mark the standard flag set parsed so glog does not complain.
	flag.CommandLine.Parse(nil)
	defer log.Flush()
	if err := rootCmd.Execute(); err != nil {
		log.Errorf("%v", err)
		log.Flush()
		os.Exit(1)
	}
}
