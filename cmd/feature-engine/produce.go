package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mzyy1001/AI-Custom-service/engine"
	"github.com/mzyy1001/AI-Custom-service/graph"
	"github.com/mzyy1001/AI-Custom-service/oracle"
)

var (
	askStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

func newProduceCmd() *cobra.Command {
	var treePath string

	cmd := &cobra.Command{
		Use:   "produce",
		Short: "Run one interactive diagnostic session over a trained tree",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProduce(cmd.Context(), treePath)
		},
	}
	cmd.Flags().StringVar(&treePath, "tree", "", "graph document to diagnose with")
	_ = cmd.MarkFlagRequired("tree")
	return cmd
}

func runProduce(ctx context.Context, treePath string) error {
	g, err := graph.Load(treePath)
	if err != nil {
		return err
	}

	chat, err := oracle.NewOpenAIChatFromEnv()
	if err != nil {
		return err
	}
	orc := oracle.New(chat, oracle.WithCache(oracle.NewMemoryCache()))

	reader := bufio.NewReader(os.Stdin)
	ask := func(_ context.Context, prompt string) (string, error) {
		fmt.Println(askStyle.Render(prompt))
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	issue, err := ask(ctx, "Describe the issue you are seeing.")
	if err != nil {
		return err
	}

	sess := engine.New(g, orc, engine.WithAsk(ask))
	sess.Start(issue)
	terminal, err := sess.Run(ctx)
	if err != nil {
		return err
	}

	// Both terminals count as a completed session.
	switch terminal {
	case engine.TerminalSuccess:
		fmt.Println(successStyle.Render("The issue is resolved."))
	default:
		fmt.Println(failureStyle.Render("No remaining suggestion applies; please escalate to a technician."))
	}
	return nil
}
