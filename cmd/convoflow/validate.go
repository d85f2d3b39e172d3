package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avelardos/convoflow/internal/adapters/file"
	"github.com/avelardos/convoflow/internal/compiler"
	"github.com/avelardos/convoflow/pkg/domain"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compile every flow and report problems",
	Long:  `Compiles every flow document under the flows directory and reports unknown node kinds, dangling edges, unreachable nodes and other authoring mistakes without starting a server.`,
	Run: func(cmd *cobra.Command, args []string) {
		flowsDir, _ := cmd.Flags().GetString("flows")
		if len(args) > 0 {
			flowsDir = args[0]
		}
		failed, err := runValidate(cmd, flowsDir)
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		if failed > 0 {
			fmt.Printf("%d flow(s) failed to compile\n", failed)
			os.Exit(1)
		}
		fmt.Println("All flows are valid ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, flowsDir string) (int, error) {
	source := file.NewSource(flowsDir)
	tenants, err := source.Tenants()
	if err != nil {
		return 0, err
	}
	if len(tenants) == 0 {
		return 0, fmt.Errorf("no tenants found under %s", flowsDir)
	}

	failed := 0
	for _, tenant := range tenants {
		templates, err := source.List(tenant)
		if err != nil {
			return failed, err
		}
		for _, template := range templates {
			raw, err := source.Load(cmd.Context(), tenant, template)
			if err != nil {
				fmt.Printf("✗ %s/%s: %v\n", tenant, template, err)
				failed++
				continue
			}
			if _, err := compiler.Compile(raw); err != nil {
				failed++
				var compileErr *domain.CompileError
				if errors.As(err, &compileErr) {
					fmt.Printf("✗ %s/%s:\n", tenant, template)
					for _, problem := range compileErr.Problems {
						fmt.Printf("    %s\n", problem)
					}
					continue
				}
				fmt.Printf("✗ %s/%s: %v\n", tenant, template, err)
				continue
			}
			fmt.Printf("✓ %s/%s\n", tenant, template)
		}
	}
	return failed, nil
}
