// Package main is the entry point for the cdpd daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cdpforge/cdpd/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "cdpd",
	Short: "cdpd exposes Chrome DevTools Protocol automation over gRPC",
	Long:  "cdpd drives headless Chromium instances through the Chrome DevTools Protocol and exposes browser, page, and element operations as a gRPC service, with optional stealth fingerprinting.",
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("cdpd %s (%s)\n", version.Full(), version.GoVersion())
		return nil
	},
}
