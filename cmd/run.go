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
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kardianos/service"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"

	"github.com/mkarvela/davsync/internal/config"
	"github.com/mkarvela/davsync/internal/core"
	"github.com/mkarvela/davsync/internal/store"
	"github.com/mkarvela/davsync/internal/webdav"
)

// keyringService is the OS keyring namespace for pair secrets.
const keyringService = "davsync"

// openStore loads the daemon settings and opens the pair database.
func openStore() (config.Settings, *store.Store, error) {
	settings, err := config.Load()
	if err != nil {
		return config.Settings{}, nil, err
	}
	db, err := store.Open(settings.ResolveDBPath())
	if err != nil {
		return config.Settings{}, nil, err
	}
	return settings, db, nil
}

// buildEngine wires the sync engine: shared clients come from an
// endpoint-keyed pool fed by the config file's auth entries, per-pair
// secrets come from the OS keyring.
func buildEngine(settings config.Settings, db *store.Store, noWatch bool) *core.Engine {
	pool := webdav.NewPool(credSource(settings.Auth), settings.RequestTimeout(), log.Logger)
	return core.New(core.Options{
		Store: db,
		Shared: func(endpoint string) (webdav.RemoteStore, error) {
			return pool.Get(endpoint)
		},
		Secrets: func(pairID string) (string, error) {
			return keyring.Get(keyringService, pairID)
		},
		NoWatch: noWatch,
		Timeout: settings.RequestTimeout(),
		Logger:  log.Logger,
	})
}

// credSource matches config auth entries against the endpoint origin.
func credSource(entries []config.AuthEntry) webdav.CredentialSource {
	return func(origin string) (string, string) {
		host := origin
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			host = u.Host
		}
		for _, e := range entries {
			if strings.EqualFold(e.Host, host) || strings.EqualFold(e.Host, origin) {
				return e.Username, e.Password
			}
		}
		return "", ""
	}
}

// RunDaemon is the entry point for the long-running process.
func RunDaemon() {
	settings, db, err := openStore()
	if err != nil {
		log.Fatal().Err(err).Msg("cannot open pair database")
	}
	defer db.Close()

	eng := buildEngine(settings, db, false)
	defer eng.Close()

	if err := eng.Load(); err != nil {
		log.Fatal().Err(err).Msg("cannot load sync pairs")
	}
	if len(eng.List()) == 0 {
		log.Info().Msg("no sync pairs configured, idling")
	}

	snaps, cancel := eng.Subscribe()
	defer cancel()
	go func() {
		for s := range snaps {
			ev := log.Debug().
				Str("pair", s.Name).
				Str("status", string(s.Status)).
				Int("queued", s.FilesInQueue)
			if s.LastError != "" {
				ev = ev.Str("last_error", s.LastError)
			}
			ev.Msg("pair state")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sync daemon in the foreground",
	Long:  `Runs the watcher process directly. Usually invoked by the system service.`,
	Run: func(cmd *cobra.Command, args []string) {
		if service.Interactive() {
			RunDaemon()
		} else {
			// When running as a service we MUST call s.Run() to check in
			// with the service manager.
			s, err := getService(viper.ConfigFileUsed())
			if err != nil {
				log.Fatal().Err(err).Msg("cannot initialize service")
			}
			s.Run()
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
