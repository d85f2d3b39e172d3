package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avelardos/convoflow/internal/adapters/file"
	"github.com/avelardos/convoflow/internal/compiler"
	"github.com/avelardos/convoflow/internal/export"
)

var graphCmd = &cobra.Command{
	Use:   "graph <tenant> <template>",
	Short: "Print a flow as a Mermaid chart",
	Long:  `Compiles one flow and prints it as Mermaid flowchart syntax, ready to paste into any Mermaid renderer.`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		flowsDir, _ := cmd.Flags().GetString("flows")

		raw, err := file.NewSource(flowsDir).Load(cmd.Context(), args[0], args[1])
		if err != nil {
			fmt.Printf("Error loading flow: %v\n", err)
			os.Exit(1)
		}
		def, err := compiler.Compile(raw)
		if err != nil {
			fmt.Printf("Error compiling flow: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(export.Mermaid(def, nil))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
