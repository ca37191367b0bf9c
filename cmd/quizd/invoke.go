package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"hackohio/quizd/pkg/worker"
)

var (
	invokePayload string
	invokePretty  bool
)

var invokeCmd = &cobra.Command{
	Use:   "invoke ACTION",
	Short: "Run one worker invocation and print its JSON result",
	Example: `  quizd invoke generate_quiz --payload '{"topic":"Tech Trends","count":5}'
  quizd invoke generate_feedback --payload '{"topic":"Go","score":3,"total":5}'`,
	Args: cobra.ExactArgs(1),
	RunE: invoke,
}

func init() {
	invokeCmd.Flags().StringVarP(&invokePayload, "payload", "p", "{}", "JSON object written to the worker's stdin")
	invokeCmd.Flags().BoolVar(&invokePretty, "pretty", false, "Indent the result")
}

func invoke(cmd *cobra.Command, args []string) error {
	var payload worker.Payload
	if err := json.Unmarshal([]byte(invokePayload), &payload); err != nil {
		return fmt.Errorf("--payload must be a JSON object: %w", err)
	}
	c, err := build()
	if err != nil {
		return err
	}
	ctx, cancel := handleSignals(cmd.Context())
	defer cancel()

	raw, err := c.orch.Invoke(ctx, args[0], payload)
	if err != nil {
		return err
	}
	out := []byte(raw)
	if invokePretty {
		var doc any
		if err := json.Unmarshal(raw, &doc); err == nil {
			if b, err := json.MarshalIndent(doc, "", "  "); err == nil {
				out = b
			}
		}
	}
	logger.Debug("invoke finished", slog.String("action", args[0]), slog.Int("bytes", len(raw)))
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
