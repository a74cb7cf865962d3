// Package main is the entry point for cdpctl, the companion CLI for cdpd.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cdpforge/cdpd/pkg/version"
)

var serverAddr string

var rootCmd = &cobra.Command{
	Use:   "cdpctl",
	Short: "cdpctl inspects and drives a running cdpd daemon",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "127.0.0.1:7070", "cdpd gRPC server address")
	rootCmd.AddCommand(statusCmd)
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
		fmt.Printf("cdpctl %s (%s)\n", version.Full(), version.GoVersion())
		return nil
	},
}
