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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mkarvela/davsync/internal/core"
)

var syncAll bool

var syncCmd = &cobra.Command{
	Use:   "sync [name]",
	Short: "Upload a pair's full local tree now",
	Long: `Walks the pair's local folder and uploads every file to the remote,
regardless of change history. The first failed upload aborts the run.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if !syncAll && len(args) == 0 {
			fmt.Println("Error: pass a pair name or use --all.")
			os.Exit(1)
		}

		settings, db, err := openStore()
		if err != nil {
			fmt.Printf("Cannot open pair database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		eng := buildEngine(settings, db, true)
		defer eng.Close()
		if err := eng.Load(); err != nil {
			fmt.Printf("Cannot load pairs: %v\n", err)
			os.Exit(1)
		}

		if syncAll {
			if err := syncAllPairs(cmd.Context(), eng); err != nil {
				os.Exit(1)
			}
			return
		}

		p, ok := eng.Find(args[0])
		if !ok {
			fmt.Printf("Error: Pair '%s' not found.\n", args[0])
			os.Exit(1)
		}
		if err := syncOne(cmd.Context(), eng, p); err != nil {
			os.Exit(1)
		}
	},
}

func syncOne(ctx context.Context, eng *core.Engine, p core.SyncPair) error {
	fmt.Printf("Syncing '%s': %s -> %s\n", p.Name, p.LocalPath, p.RemoteURL)
	err := eng.SyncNow(ctx, p.ID, func(done, total int, path string) {
		fmt.Printf("  [%d/%d] %s\n", done, total, filepath.Base(path))
	})
	if err != nil {
		if errors.Is(err, core.ErrSyncDisabled) {
			fmt.Printf("Pair '%s' is paused. Resume it first with 'davsync pair resume %s'.\n", p.Name, p.Name)
		} else {
			fmt.Printf("Sync failed: %v\n", err)
		}
		return err
	}
	fmt.Printf("Pair '%s' synced.\n", p.Name)
	return nil
}

func syncAllPairs(ctx context.Context, eng *core.Engine) error {
	pairs := eng.List()
	if len(pairs) == 0 {
		fmt.Println("No sync pairs configured.")
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range pairs {
		if !p.Enabled {
			fmt.Printf("Skipping paused pair '%s'.\n", p.Name)
			continue
		}
		g.Go(func() error {
			err := eng.SyncNow(ctx, p.ID, func(done, total int, path string) {
				fmt.Printf("[%s] %d/%d %s\n", p.Name, done, total, filepath.Base(path))
			})
			if err != nil {
				fmt.Printf("[%s] sync failed: %v\n", p.Name, err)
				return err
			}
			fmt.Printf("[%s] synced.\n", p.Name)
			return nil
		})
	}
	return g.Wait()
}

func init() {
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "Sync every enabled pair")
	rootCmd.AddCommand(syncCmd)
}
