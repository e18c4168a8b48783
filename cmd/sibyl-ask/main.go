// ABOUTME: Command-line client for asking the gateway a question.
// ABOUTME: Usage: sibyl-ask [-url http://localhost:8080] [-token TOKEN] your question here

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

func main() {
	url := flagString("-url", "http://localhost:8080")
	token := flagString("-token", os.Getenv("SIBYL_TOKEN"))

	question := strings.TrimSpace(strings.Join(positionalArgs(), " "))
	if question == "" {
		fmt.Fprintln(os.Stderr, "Usage: sibyl-ask [-url URL] [-token TOKEN] <question>")
		os.Exit(1)
	}

	if err := ask(url, token, question); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// flagString scans os.Args for "name value" without consuming positionals.
func flagString(name, defaultVal string) string {
	args := os.Args[1:]
	for i, arg := range args {
		if arg == name && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, name+"=") {
			return strings.TrimPrefix(arg, name+"=")
		}
	}
	return defaultVal
}

// positionalArgs returns the non-flag arguments.
func positionalArgs() []string {
	var out []string
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "-url" || arg == "-token" {
			i++ // skip the flag value
			continue
		}
		if strings.HasPrefix(arg, "-url=") || strings.HasPrefix(arg, "-token=") {
			continue
		}
		out = append(out, arg)
	}
	return out
}

type queryResponse struct {
	Response string `json:"response"`
	Status   string `json:"status"`
}

func ask(baseURL, token, question string) error {
	body, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, strings.TrimSuffix(baseURL, "/")+"/query", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending query: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to the envelope
	case http.StatusServiceUnavailable:
		var detail struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&detail); err == nil && detail.Detail != "" {
			return fmt.Errorf("gateway not ready: %s", detail.Detail)
		}
		return fmt.Errorf("gateway not ready")
	case http.StatusUnauthorized:
		return fmt.Errorf("unauthorized: pass -token or set SIBYL_TOKEN")
	default:
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	switch qr.Status {
	case "success":
		color.New(color.FgGreen).Fprintln(os.Stderr, "✓ "+qr.Status)
	case "not_found", "config_error":
		color.New(color.FgYellow).Fprintln(os.Stderr, "⚠ "+qr.Status)
	default:
		color.New(color.FgRed).Fprintln(os.Stderr, "✗ "+qr.Status)
	}
	fmt.Println(qr.Response)
	return nil
}
