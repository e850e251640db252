// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeHealth(t *testing.T, ready bool) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz/liveness", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/healthz/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready\n"))
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestStatus_TableOutput(t *testing.T) {
	addr := fakeHealth(t, true)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"status", "--addr", addr})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "LIVENESS")
	assert.Contains(t, output, addr)
	assert.Contains(t, output, "ok")
}

func TestStatus_JSONOutput(t *testing.T) {
	addr := fakeHealth(t, false)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"status", "--addr", addr, "--json"})

	require.NoError(t, cmd.Execute())

	var status ClientStatus
	require.NoError(t, json.Unmarshal(buf.Bytes(), &status))
	assert.Equal(t, addr, status.Addr)
	assert.Equal(t, "ok", status.Liveness)
	assert.Equal(t, "not ready", status.Readiness)
}

func TestStatus_UnreachableClient(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"status", "--addr", "127.0.0.1:1", "--json"})

	require.NoError(t, cmd.Execute())

	var status ClientStatus
	require.NoError(t, json.Unmarshal(buf.Bytes(), &status))
	assert.Equal(t, "unreachable", status.Liveness)
	assert.NotEmpty(t, status.Error)
}

func TestStatus_WaitFailsWhenNeverReady(t *testing.T) {
	addr := fakeHealth(t, false)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"status", "--addr", addr, "--wait"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready")
}
