/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "resonant",
	Short: "A Cli to run and inspect the resonant scheduler",
	Long: `A Cli to run and inspect the resonant scheduler.

Resonant is a stability-weighted cooperative task scheduler.`,
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return err
	}
	return nil
}
