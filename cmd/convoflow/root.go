package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "convoflow",
	Short: "Convoflow is a multi-tenant conversation flow engine",
	Long:  `Convoflow compiles authored node graphs into executable conversation flows and drives them turn by turn over HTTP or in an interactive terminal.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("flows", "./flows", "Directory containing flow documents (<flows>/<tenant>/<template>.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
}
