package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteJSON_EncodeFailuresAreInternal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := writeJSONLine(&buf, map[string]any{"bad": make(chan int)})
	require.Equal(t, exitInternal, exitCode(err))

	err = writeJSONFile(filepath.Join(t.TempDir(), "report.json"), func() {})
	require.Equal(t, exitInternal, exitCode(err))
}

func TestWriteJSON_KeepsHangulUnescaped(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, writeJSONLine(&buf, map[string]string{"school": "가나고등학교 <본관>"}))
	require.Equal(t, "{\"school\":\"가나고등학교 <본관>\"}\n", buf.String())

	path := filepath.Join(t.TempDir(), "out", "report.json")
	require.NoError(t, writeJSONFile(path, map[string]int{"written": 3}))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), `"written": 3`)
}
