package cli

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akarpenko/notesync/internal/client/bridge"
)

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	reader := bufio.NewReader(strings.NewReader("  a@x.com  \n"))

	got, err := GetSimpleText(reader, "Enter email", &out)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got)
	assert.Contains(t, out.String(), "Enter email")
}

func TestGetSimpleText_PartialLineOnEOF(t *testing.T) {
	var out bytes.Buffer
	reader := bufio.NewReader(strings.NewReader("no-newline"))

	got, err := GetSimpleText(reader, "Enter email", &out)
	require.NoError(t, err)
	assert.Equal(t, "no-newline", got)
}

func TestGetPassword_UsesTerminalReader(t *testing.T) {
	orig := readPassword
	defer func() { readPassword = orig }()
	readPassword = func(fd int) ([]byte, error) {
		return []byte("pw12345678"), nil
	}

	var out bytes.Buffer
	got, err := GetPassword(&out)
	require.NoError(t, err)
	assert.Equal(t, []byte("pw12345678"), got)
	assert.Contains(t, out.String(), "Enter password")
}

func TestPrintEnvelope(t *testing.T) {
	var out bytes.Buffer
	a := &App{out: &out}

	a.print(bridge.Envelope{Success: false, Error: "not logged in"})
	assert.Contains(t, out.String(), "error: not logged in")

	out.Reset()
	a.print(bridge.Envelope{Success: true, Data: bridge.StatusData{
		State: "idle", Email: "a@x.com", AutoSyncOn: true, LastSyncAt: "2026-01-02T15:04:05Z",
	}})
	assert.Contains(t, out.String(), "state: idle")
	assert.Contains(t, out.String(), "account: a@x.com")
	assert.Contains(t, out.String(), "autosync: true")
	assert.Contains(t, out.String(), "last sync: 2026-01-02T15:04:05Z")

	out.Reset()
	a.print(bridge.Envelope{Success: true})
	assert.Contains(t, out.String(), "OK")
}
