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

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const serviceName = "davsync"

// program implements the service.Interface
type program struct{}

func (p *program) Start(s service.Service) error {
	go p.run()
	return nil
}

func (p *program) Stop(s service.Service) error {
	return nil
}

func (p *program) run() {
	RunDaemon()
}

func getService(configPath string) (service.Service, error) {
	args := []string{"run"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}

	svcConfig := &service.Config{
		Name:        serviceName,
		DisplayName: "DavSync",
		Description: "Watches configured folders and mirrors changes to WebDAV remotes.",
		Arguments:   args,
	}

	prg := &program{}
	return service.New(prg, svcConfig)
}

// serviceHandle builds a handle for controlling an already installed
// service, where only the name matters.
func serviceHandle() (service.Service, error) {
	return service.New(&program{}, &service.Config{Name: serviceName})
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install davsync as a system service",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := getService(viper.ConfigFileUsed())
		if err != nil {
			fmt.Printf("Setup failed: %v\n", err)
			return
		}

		// Check if already installed
		status, err := s.Status()
		if err == nil {
			fmt.Println("davsync is already installed.")
			if status == service.StatusRunning {
				fmt.Println("Service is currently RUNNING.")
			} else {
				fmt.Println("Service is currently STOPPED.")
			}
			fmt.Println("Use 'davsync restart' to apply config changes, or 'davsync uninstall' to remove it.")
			return
		}

		fmt.Println("Installing davsync service...")
		if err := s.Install(); err != nil {
			fmt.Printf("Failed to install: %v\n", err)
			fmt.Println("Hint: Ensure you are running with elevated privileges.")
			return
		}
		fmt.Println("Service installed successfully.")

		fmt.Println("Starting service...")
		if err := s.Start(); err != nil {
			fmt.Printf("Failed to start: %v\n", err)
			return
		}
		fmt.Println("Service started.")
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the davsync service",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := serviceHandle()
		if err != nil {
			fmt.Println(err)
			return
		}

		if err := s.Stop(); err != nil {
			// Ignore stop errors, it might not be running
		}

		if err := s.Uninstall(); err != nil {
			fmt.Printf("Failed to uninstall: %v\n", err)
			return
		}
		fmt.Println("Service uninstalled.")
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the davsync service",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := serviceHandle()
		if err != nil {
			fmt.Println(err)
			return
		}

		fmt.Println("Restarting davsync service...")
		if err := s.Restart(); err != nil {
			fmt.Printf("Failed to restart: %v\n", err)
			return
		}
		fmt.Println("Service restarted.")
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the davsync service",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := serviceHandle()
		if err != nil {
			fmt.Println(err)
			return
		}

		fmt.Println("Stopping davsync service...")
		if err := s.Stop(); err != nil {
			fmt.Printf("Failed to stop: %v\n", err)
			return
		}
		fmt.Println("Service stopped.")
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the davsync service",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := serviceHandle()
		if err != nil {
			fmt.Println(err)
			return
		}

		fmt.Println("Starting davsync service...")
		if err := s.Start(); err != nil {
			fmt.Printf("Failed to start: %v\n", err)
			return
		}
		fmt.Println("Service started.")
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(startCmd)
}
