package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/avelardos/convoflow"
	"github.com/avelardos/convoflow/internal/adapters/file"
	"github.com/avelardos/convoflow/internal/logging"
	"github.com/avelardos/convoflow/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run a flow interactively in the terminal",
	Long:  `Simulates a conversation against one tenant's flow template, reading your side of the dialogue from stdin. Useful for authoring and debugging flows before wiring a real channel.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runChat(cmd); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("tenant", "default", "Tenant whose flows to load")
	chatCmd.Flags().String("template", "", "Flow template to run (required)")
	chatCmd.MarkFlagRequired("template")
}

func runChat(cmd *cobra.Command) error {
	flowsDir, _ := cmd.Flags().GetString("flows")
	levelName, _ := cmd.Flags().GetString("log-level")
	tenant, _ := cmd.Flags().GetString("tenant")
	template, _ := cmd.Flags().GetString("template")

	interactive := term.IsTerminal(int(os.Stdin.Fd()))

	engine, err := convoflow.New(file.NewSource(flowsDir),
		convoflow.WithLogger(logging.New(logging.ParseLevel(levelName))),
	)
	if err != nil {
		return err
	}
	// Fail on a broken flow before the first prompt.
	if _, err := engine.Definition(cmd.Context(), tenant, template); err != nil {
		return err
	}

	renderer := tui.NewRenderer(os.Stdout)
	if interactive {
		tui.PrintBanner(os.Stdout)
		fmt.Printf("Chatting with %s/%s. Type /quit to leave.\n\n", tenant, template)
	}

	req := convoflow.TurnRequest{
		TenantID:   tenant,
		UserID:     "local",
		TemplateID: template,
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "/quit" {
			return nil
		}

		req.Text = line
		res, err := engine.ProcessTurn(cmd.Context(), req)
		if err != nil {
			return err
		}
		req.SessionID = res.SessionKey.SessionID

		for _, msg := range res.Messages {
			if err := renderer.RenderMessage(cmd.Context(), res.SessionKey, msg); err != nil {
				return err
			}
		}
		for _, payload := range res.Options {
			if err := renderer.RenderOptions(cmd.Context(), res.SessionKey, "", payload); err != nil {
				return err
			}
		}
		if res.Debug.Ended {
			if interactive {
				fmt.Println("-- conversation ended --")
			}
			req.SessionID = ""
		}
	}
}
