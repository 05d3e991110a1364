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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"

	"github.com/mkarvela/davsync/internal/config"
	"github.com/mkarvela/davsync/internal/core"
	"github.com/mkarvela/davsync/internal/store"
	"github.com/mkarvela/davsync/internal/webdav"
)

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Manage sync pairs",
}

// findPair resolves a pair by id or name from the store.
func findPair(db *store.Store, ref string) (core.SyncPair, bool) {
	pairs, err := db.Load()
	if err != nil {
		return core.SyncPair{}, false
	}
	for _, p := range pairs {
		if p.ID == ref || p.Name == ref {
			return p, true
		}
	}
	return core.SyncPair{}, false
}

// verifyRemote lists the remote base once to prove the endpoint and
// credentials work before the pair is persisted.
func verifyRemote(settings config.Settings, p core.SyncPair, secret string) error {
	user, pass := p.Username, secret
	if user == "" {
		user, pass = credSource(settings.Auth)(p.RemoteURL)
	}
	client, err := webdav.NewClient(webdav.Options{
		BaseURL:  p.RemoteURL,
		Username: user,
		Secret:   pass,
		Timeout:  settings.RequestTimeout(),
		Logger:   log.Logger,
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), settings.RequestTimeout())
	defer cancel()
	_, err = client.GetDirectoryContents(ctx, p.RemoteBasePath(), false)
	return err
}

var pairAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new sync pair",
	Long: `Adds a local folder that will be mirrored one-way to a WebDAV remote.

Changes are debounced: rapid saves to the same file collapse into a single
upload once the folder has been quiet for the debounce window. Exclusion
globs use ** to match across directory levels.`,
	Example: `  davsync pair add --name notes --path ~/notes --url https://dav.example.com/backups/notes \
      --exclude "**/*.tmp" --exclude "**/.git/**" --debounce 2s`,
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")
		path, _ := cmd.Flags().GetString("path")
		remoteURL, _ := cmd.Flags().GetString("url")
		username, _ := cmd.Flags().GetString("username")
		secret, _ := cmd.Flags().GetString("secret")
		useKeyring, _ := cmd.Flags().GetBool("keyring")
		force, _ := cmd.Flags().GetBool("force")
		debounce, _ := cmd.Flags().GetDuration("debounce")
		exclude, _ := cmd.Flags().GetStringArray("exclude")
		onDelete, _ := cmd.Flags().GetBool("sync-deletes")
		hidden, _ := cmd.Flags().GetBool("sync-hidden")
		disabled, _ := cmd.Flags().GetBool("disabled")

		if name == "" || path == "" || remoteURL == "" {
			fmt.Println("Error: --name, --path, and --url are required.")
			return
		}

		absPath, err := filepath.Abs(path)
		if err != nil {
			fmt.Printf("Invalid path: %v\n", err)
			return
		}
		if info, err := os.Stat(absPath); err != nil || !info.IsDir() {
			fmt.Printf("Error: %s is not an existing directory.\n", absPath)
			return
		}

		settings, db, err := openStore()
		if err != nil {
			fmt.Printf("Cannot open pair database: %v\n", err)
			return
		}
		defer db.Close()

		if _, exists := findPair(db, name); exists {
			fmt.Printf("Error: Pair '%s' already exists.\n", name)
			return
		}

		p := core.NewSyncPair(name, absPath, strings.TrimRight(remoteURL, "/"))
		p.Username = username
		p.SyncOnDelete = onDelete
		p.SyncHidden = hidden
		p.Enabled = !disabled
		if debounce > 0 {
			p.Debounce = debounce
		}
		p.Exclude = exclude

		if !force {
			fmt.Printf("Verifying connection to %s...\n", p.RemoteURL)
			if err := verifyRemote(settings, p, secret); err != nil {
				fmt.Printf("Connection failed: %v\n", err)
				fmt.Println("Use --force to add anyway.")
				return
			}
			fmt.Println("Connection verified.")
		}

		if secret != "" {
			if useKeyring {
				if err := keyring.Set(keyringService, p.ID, secret); err != nil {
					fmt.Printf("Cannot store secret in keyring: %v\n", err)
					return
				}
			} else {
				p.Secret = secret
			}
		}

		if err := db.Save(p); err != nil {
			fmt.Printf("Failed to save pair: %v\n", err)
			return
		}

		fmt.Printf("Pair '%s' added. Syncing %s -> %s\n", name, absPath, p.RemoteURL)
		fmt.Println("\n>>> IMPORTANT: Run 'davsync restart' to apply these changes to the running service.")
	},
}

var pairListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List configured sync pairs",
	Run: func(cmd *cobra.Command, args []string) {
		_, db, err := openStore()
		if err != nil {
			fmt.Printf("Cannot open pair database: %v\n", err)
			return
		}
		defer db.Close()

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
		table.SetHeader([]string{"Name", "Local Path", "Remote URL", "Enabled", "Debounce"})
		for _, p := range pairs {
			enabled := "yes"
			if !p.Enabled {
				enabled = "no"
			}
			table.Append([]string{p.Name, p.LocalPath, p.RemoteURL, enabled, p.Debounce.String()})
		}
		table.Render()
	},
}

var pairRemoveCmd = &cobra.Command{
	Use:     "rm [name]",
	Aliases: []string{"remove", "del"},
	Short:   "Remove a sync pair",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, db, err := openStore()
		if err != nil {
			fmt.Printf("Cannot open pair database: %v\n", err)
			return
		}
		defer db.Close()

		p, ok := findPair(db, args[0])
		if !ok {
			fmt.Printf("Error: Pair '%s' not found.\n", args[0])
			return
		}

		if err := db.Delete(p.ID); err != nil {
			fmt.Printf("Failed to remove pair: %v\n", err)
			return
		}
		// Best effort: the secret may live in the store instead.
		_ = keyring.Delete(keyringService, p.ID)

		fmt.Printf("Pair '%s' removed.\n", p.Name)
		fmt.Println("\n>>> IMPORTANT: Run 'davsync restart' to apply these changes to the running service.")
	},
}

var pairEditCmd = &cobra.Command{
	Use:   "edit [name]",
	Short: "Change settings of an existing sync pair",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, db, err := openStore()
		if err != nil {
			fmt.Printf("Cannot open pair database: %v\n", err)
			return
		}
		defer db.Close()

		p, ok := findPair(db, args[0])
		if !ok {
			fmt.Printf("Error: Pair '%s' not found.\n", args[0])
			return
		}

		var patch core.PairPatch
		if cmd.Flags().Changed("name") {
			v, _ := cmd.Flags().GetString("name")
			patch.Name = &v
		}
		if cmd.Flags().Changed("path") {
			v, _ := cmd.Flags().GetString("path")
			abs, err := filepath.Abs(v)
			if err != nil {
				fmt.Printf("Invalid path: %v\n", err)
				return
			}
			patch.LocalPath = &abs
		}
		if cmd.Flags().Changed("url") {
			v, _ := cmd.Flags().GetString("url")
			v = strings.TrimRight(v, "/")
			patch.RemoteURL = &v
		}
		if cmd.Flags().Changed("username") {
			v, _ := cmd.Flags().GetString("username")
			patch.Username = &v
		}
		if cmd.Flags().Changed("secret") {
			v, _ := cmd.Flags().GetString("secret")
			patch.Secret = &v
		}
		if cmd.Flags().Changed("debounce") {
			v, _ := cmd.Flags().GetDuration("debounce")
			patch.Debounce = &v
		}
		if cmd.Flags().Changed("exclude") {
			v, _ := cmd.Flags().GetStringArray("exclude")
			patch.Exclude = &v
		}
		if cmd.Flags().Changed("sync-deletes") {
			v, _ := cmd.Flags().GetBool("sync-deletes")
			patch.SyncOnDelete = &v
		}
		if cmd.Flags().Changed("sync-hidden") {
			v, _ := cmd.Flags().GetBool("sync-hidden")
			patch.SyncHidden = &v
		}

		if err := db.Save(patch.Apply(p)); err != nil {
			fmt.Printf("Failed to save pair: %v\n", err)
			return
		}
		fmt.Printf("Pair '%s' updated.\n", p.Name)
		fmt.Println("\n>>> IMPORTANT: Run 'davsync restart' to apply these changes to the running service.")
	},
}

var pairPauseCmd = &cobra.Command{
	Use:   "pause [name]",
	Short: "Disable a sync pair without removing it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setPairEnabled(args[0], false)
	},
}

var pairResumeCmd = &cobra.Command{
	Use:   "resume [name]",
	Short: "Re-enable a paused sync pair",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setPairEnabled(args[0], true)
	},
}

func setPairEnabled(ref string, enabled bool) {
	_, db, err := openStore()
	if err != nil {
		fmt.Printf("Cannot open pair database: %v\n", err)
		return
	}
	defer db.Close()

	p, ok := findPair(db, ref)
	if !ok {
		fmt.Printf("Error: Pair '%s' not found.\n", ref)
		return
	}

	p.Enabled = enabled
	if err := db.Save(p); err != nil {
		fmt.Printf("Failed to save pair: %v\n", err)
		return
	}
	if enabled {
		fmt.Printf("Pair '%s' resumed.\n", p.Name)
	} else {
		fmt.Printf("Pair '%s' paused.\n", p.Name)
	}
	fmt.Println("\n>>> IMPORTANT: Run 'davsync restart' to apply these changes to the running service.")
}

func init() {
	pairAddCmd.Flags().String("name", "", "Unique name for this pair")
	pairAddCmd.Flags().String("path", "", "Local folder to watch")
	pairAddCmd.Flags().String("url", "", "Remote WebDAV base URL")
	pairAddCmd.Flags().String("username", "", "Per-pair username (overrides config auth)")
	pairAddCmd.Flags().String("secret", "", "Per-pair password or token")
	pairAddCmd.Flags().Bool("keyring", false, "Store the secret in the OS keyring instead of the database")
	pairAddCmd.Flags().Bool("force", false, "Skip connection verification")
	pairAddCmd.Flags().Duration("debounce", 500*time.Millisecond, "Quiet window before queued changes are uploaded")
	pairAddCmd.Flags().StringArray("exclude", nil, "Glob pattern to exclude (repeatable)")
	pairAddCmd.Flags().Bool("sync-deletes", false, "Propagate local deletions to the remote")
	pairAddCmd.Flags().Bool("sync-hidden", false, "Include hidden files and folders")
	pairAddCmd.Flags().Bool("disabled", false, "Add the pair paused")

	pairEditCmd.Flags().String("name", "", "New name")
	pairEditCmd.Flags().String("path", "", "New local folder")
	pairEditCmd.Flags().String("url", "", "New remote WebDAV base URL")
	pairEditCmd.Flags().String("username", "", "New per-pair username")
	pairEditCmd.Flags().String("secret", "", "New per-pair secret")
	pairEditCmd.Flags().Duration("debounce", 0, "New debounce window")
	pairEditCmd.Flags().StringArray("exclude", nil, "Replacement exclusion globs (repeatable)")
	pairEditCmd.Flags().Bool("sync-deletes", false, "Propagate local deletions to the remote")
	pairEditCmd.Flags().Bool("sync-hidden", false, "Include hidden files and folders")

	pairCmd.AddCommand(pairAddCmd)
	pairCmd.AddCommand(pairListCmd)
	pairCmd.AddCommand(pairRemoveCmd)
	pairCmd.AddCommand(pairEditCmd)
	pairCmd.AddCommand(pairPauseCmd)
	pairCmd.AddCommand(pairResumeCmd)
	rootCmd.AddCommand(pairCmd)
}
