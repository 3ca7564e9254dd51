package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSchoolsImportCmd_UsageErrors(t *testing.T) {
	t.Parallel()

	cmd := newRootCmd()
	cmd.SetArgs([]string{"schools", "import"})
	cmd.SetOut(&bytes.Buffer{})
	require.Equal(t, exitUsage, exitCode(cmd.Execute()))

	var out bytes.Buffer
	err := runSchoolsImport(context.Background(), &out, "highschool_list.xlsx", schoolsImportOptions{batchSize: -1})
	require.Equal(t, exitUsage, exitCode(err))
	require.Empty(t, out.String())
}
