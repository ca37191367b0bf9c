package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hackohio/quizd/internal/quiz"
)

var (
	smokeBase    string
	smokeTimeout time.Duration
)

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Exercise a running server's quiz and feedback endpoints",
	RunE:  smoke,
}

func init() {
	smokeCmd.Flags().StringVar(&smokeBase, "base", "http://localhost:4010", "Base URL of the server")
	smokeCmd.Flags().DurationVar(&smokeTimeout, "timeout", 10*time.Second, "Per-request timeout")
}

func smoke(cmd *cobra.Command, _ []string) error {
	client := &http.Client{Timeout: smokeTimeout}
	base := strings.TrimRight(smokeBase, "/")
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Testing /generate-quiz")
	var q quiz.Quiz
	body, err := postJSON(cmd.Context(), client, base+"/generate-quiz", map[string]any{"topic": "Tech Trends"}, &q)
	if err != nil {
		return fmt.Errorf("smoke test failed: %w", err)
	}
	fmt.Fprintln(out, "Quiz response:", verdict(q.Valid()), body)

	fmt.Fprintln(out, "Testing /generate-feedback")
	var f quiz.Feedback
	body, err = postJSON(cmd.Context(), client, base+"/generate-feedback", map[string]any{"topic": "Tech Trends", "score": 3, "total": 5}, &f)
	if err != nil {
		return fmt.Errorf("smoke test failed: %w", err)
	}
	fmt.Fprintln(out, "Feedback response:", verdict(f.Valid()), body)

	if !q.Valid() || !f.Valid() {
		return fmt.Errorf("smoke test failed: invalid response shape")
	}
	return nil
}

func verdict(ok bool) string {
	if ok {
		return "OK"
	}
	return "INVALID"
}

func postJSON(ctx context.Context, client *http.Client, url string, in, out any) (string, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	body := strings.TrimSpace(string(raw))
	if resp.StatusCode != http.StatusOK {
		return body, fmt.Errorf("status %d, data %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return body, fmt.Errorf("decode response: %w", err)
	}
	return body, nil
}
