// Copyright 2026 The davsync authors
//
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

package cmd

import (
	"fmt"
	"os"

	"github.com/kardianos/service"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var statusReset bool

var statusCmd = &cobra.Command{
	Use:   "status [name]",
	Short: "Show the recorded state of sync pairs",
	Long: `Shows each pair's last recorded status, sync time and error as written
by the daemon. Pass --reset to clear the recorded state, for one pair or
for all of them.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, db, err := openStore()
		if err != nil {
			fmt.Printf("Cannot open pair database: %v\n", err)
			return
		}
		defer db.Close()

		if statusReset {
			id := ""
			if len(args) > 0 {
				p, ok := findPair(db, args[0])
				if !ok {
					fmt.Printf("Error: Pair '%s' not found.\n", args[0])
					return
				}
				id = p.ID
			}
			if err := db.ResetRuntime(id); err != nil {
				fmt.Printf("Failed to reset status: %v\n", err)
				return
			}
			fmt.Println("Status reset.")
			return
		}

		if s, err := serviceHandle(); err == nil {
			switch st, err := s.Status(); {
			case err != nil:
				fmt.Println("Service: not installed")
			case st == service.StatusRunning:
				fmt.Println("Service: running")
			default:
				fmt.Println("Service: stopped")
			}
		}

		pairs, err := db.Load()
		if err != nil {
			fmt.Printf("Failed to load pairs: %v\n", err)
			return
		}
		if len(pairs) == 0 {
			fmt.Println("No sync pairs configured.")
			return
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Name", "Status", "Last Sync", "Last Error"})
		for _, p := range pairs {
			if len(args) > 0 && p.Name != args[0] && p.ID != args[0] {
				continue
			}
			status := string(p.Status)
			if !p.Enabled {
				status = "paused"
			}
			lastSync := "never"
			if !p.LastSync.IsZero() {
				lastSync = p.LastSync.Format("2006-01-02 15:04:05")
			}
			table.Append([]string{p.Name, status, lastSync, p.LastError})
		}
		table.Render()
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusReset, "reset", false, "Clear the recorded status, last sync and last error")
	rootCmd.AddCommand(statusCmd)
}
