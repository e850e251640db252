// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"github.com/netdodge/netdodge/internal/config"
)

// ClientStatus holds the probed state of a running client daemon.
type ClientStatus struct {
	Addr      string `json:"addr"`
	Liveness  string `json:"liveness"`
	Readiness string `json:"readiness"`
	Error     string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	addr       string
	jsonOutput bool
	wait       bool
}

// newStatusCmd creates the status subcommand with all flags configured.
func newStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show health of a running NetDodge client",
		Long:  `Probe the liveness and readiness endpoints of a running client daemon.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.addr, "addr", config.Defaults().MetricsAddr, "client metrics/health address")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")
	cmd.Flags().BoolVar(&cfg.wait, "wait", false, "retry with backoff until the client reports ready")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	status := queryClientStatus(ctx, cfg.addr)
	if cfg.wait && status.Readiness != "ok" {
		backoff := retry.WithMaxRetries(8, retry.NewFibonacci(100*time.Millisecond))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			status = queryClientStatus(ctx, cfg.addr)
			if status.Readiness != "ok" {
				return retry.RetryableError(fmt.Errorf("client not ready: %s", status.Readiness))
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	var output string
	if cfg.jsonOutput {
		raw, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		output = string(raw)
	} else {
		output = formatStatusTable(status)
	}

	cmd.Println(output)
	return nil
}

// queryClientStatus probes both health endpoints.
func queryClientStatus(ctx context.Context, addr string) ClientStatus {
	status := ClientStatus{Addr: addr}

	var err error
	status.Liveness, err = probe(ctx, addr, "/healthz/liveness")
	if err != nil {
		status.Liveness = "unreachable"
		status.Error = err.Error()
		status.Readiness = "unreachable"
		return status
	}
	status.Readiness, err = probe(ctx, addr, "/healthz/readiness")
	if err != nil {
		status.Readiness = "unreachable"
		status.Error = err.Error()
	}
	return status
}

func probe(ctx context.Context, addr, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+path, nil)
	if err != nil {
		return "", err
	}
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

func formatStatusTable(status ClientStatus) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ADDR\tLIVENESS\tREADINESS")
	fmt.Fprintf(w, "%s\t%s\t%s\n", status.Addr, status.Liveness, status.Readiness)
	_ = w.Flush()
	out := sb.String()
	if status.Error != "" {
		out += "\nerror: " + status.Error
	}
	return strings.TrimRight(out, "\n")
}
