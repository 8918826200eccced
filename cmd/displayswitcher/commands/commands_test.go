package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bryanchriswhite/DisplaySwitcher/internal/coordinator"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/display"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFormatted(t *testing.T) {
	v := map[string]int{"idle_threshold": 900000}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeFormatted(&buf, "json", v, nil))
		assert.JSONEq(t, `{"idle_threshold": 900000}`, buf.String())
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeFormatted(&buf, "yaml", v, nil))
		assert.Equal(t, "idle_threshold: 900000\n", buf.String())
	})

	t.Run("table without table writer", func(t *testing.T) {
		assert.Error(t, writeFormatted(&bytes.Buffer{}, "table", v, nil))
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, writeFormatted(&bytes.Buffer{}, "xml", v, nil))
	})
}

func TestPrintMonitorsTable(t *testing.T) {
	var buf bytes.Buffer
	monitors := []display.Monitor{
		{Port: "eDP-1", DisplayName: "Built-in display", CurrentMode: "1920x1080@60.020", Modes: []string{"1920x1080@60.020"}},
		{Port: "DP-2", DisplayName: `Acme 23"`, Modes: []string{"1920x1080@60.000", "1280x720@60.000"}},
	}
	require.NoError(t, printMonitorsTable(&buf, monitors, "Acme"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "DISPLAY NAME")
	assert.True(t, strings.HasSuffix(lines[2], "No"))
	assert.Contains(t, lines[3], "DP-2")
	assert.True(t, strings.HasSuffix(lines[3], "Yes"))
}

func TestFetchDaemonState(t *testing.T) {
	want := coordinator.Snapshot{State: coordinator.StateSwitched, DisplaySwitched: true}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/state" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := fetchDaemonState(ctx, strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestFetchDaemonStateError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "coordinator stopped", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := fetchDaemonState(context.Background(), strings.TrimPrefix(srv.URL, "http://"))
	assert.Error(t, err)
}

func TestPrintStatusTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printStatusTable(&buf, Status{IdleTimeMS: 90500, Locked: true}))

	out := buf.String()
	assert.Contains(t, out, "1m30.5s")
	assert.Contains(t, out, "Yes")
	assert.Contains(t, out, "api disabled")
}
