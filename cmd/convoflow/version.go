package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avelardos/convoflow"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of convoflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("convoflow version %s\n", strings.TrimSpace(convoflow.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
