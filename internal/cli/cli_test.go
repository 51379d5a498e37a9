package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydro-extremes/internal/report"
	"hydro-extremes/internal/version"
)

func TestRequestFlags(t *testing.T) {
	f := requestFlags{primary: "p1", upchain: "u1", from: "2024-03-01", to: "2024-03-31"}
	params, err := f.params()
	require.NoError(t, err)
	assert.Equal(t, "p1", params.PrimaryTimeseriesIdentifier)
	assert.Equal(t, "u1", params.UpchainTimeseriesIdentifier)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), params.EndDate)

	_, err = (&requestFlags{primary: "p1", from: "yesterday", to: "2024-03-31"}).params()
	assert.ErrorContains(t, err, "--from")

	_, err = (&requestFlags{from: "2024-03-01", to: "2024-03-31"}).params()
	assert.ErrorIs(t, err, report.ErrInvalidRequest)

	_, err = (&requestFlags{primary: "p1", from: "2024-03-31", to: "2024-03-01"}).params()
	assert.ErrorIs(t, err, report.ErrInvalidRequest)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"report", "export", "watch", "version"} {
		assert.True(t, names[want], want)
	}
	assert.NotNil(t, reportCmd.Flags().Lookup("primary"))
	assert.NotNil(t, exportCmd.Flags().Lookup("csv"))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, version.String()+"\n", out.String())
}
