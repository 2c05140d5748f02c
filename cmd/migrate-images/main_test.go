package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivohistorico/heritage/internal/pkg/imagemigration"
)

func stubBuild(summary imagemigration.Summary, runErr error, got *imagemigration.Options) func(context.Context) (runFunc, func(), error) {
	return func(context.Context) (runFunc, func(), error) {
		run := func(_ context.Context, opts imagemigration.Options) (imagemigration.Summary, error) {
			*got = opts
			summary.DryRun = opts.DryRun
			return summary, runErr
		}
		return run, func() {}, nil
	}
}

func TestFlagsReachTheMigrator(t *testing.T) {
	var got imagemigration.Options
	var out bytes.Buffer

	cmd := newRootCmd(stubBuild(imagemigration.Summary{}, nil, &got), &out)
	cmd.SetArgs([]string{"--dry-run", "--model", "presidentes", "--force"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, imagemigration.Options{DryRun: true, Model: "presidentes", Force: true}, got)
	assert.Contains(t, out.String(), "TOTAL")
	assert.Contains(t, out.String(), "dry run")
}

func TestRecordErrorsFailTheCommand(t *testing.T) {
	var got imagemigration.Options
	var out bytes.Buffer

	summary := imagemigration.Summary{Models: []imagemigration.ModelSummary{
		{Model: "estandartes", Tally: imagemigration.Tally{Processed: 2, Errors: 1}},
	}}
	cmd := newRootCmd(stubBuild(summary, nil, &got), &out)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errFailedRecords))
	assert.Contains(t, out.String(), "estandartes")
}

func TestUnknownModelFailsBeforeSetup(t *testing.T) {
	var out bytes.Buffer
	built := false
	build := func(context.Context) (runFunc, func(), error) {
		built = true
		return nil, nil, errors.New("connect to database: refused")
	}

	cmd := newRootCmd(build, &out)
	cmd.SetArgs([]string{"--model", "noticias"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, imagemigration.ErrUnknownModel))
	assert.Contains(t, err.Error(), "estandartes, presidentes, publicaciones, distinciones")
	assert.False(t, built, "no database connection for an unknown model")
	assert.Empty(t, out.String())
}

func TestModelMatchIgnoresCaseAndSpace(t *testing.T) {
	var got imagemigration.Options
	cmd := newRootCmd(stubBuild(imagemigration.Summary{}, nil, &got), &bytes.Buffer{})
	cmd.SetArgs([]string{"--model", " Presidentes "})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, " Presidentes ", got.Model)
}

func TestRunErrorFailsWithoutTable(t *testing.T) {
	var got imagemigration.Options
	var out bytes.Buffer

	runErr := fmt.Errorf("select %s: %w", "estandartes", context.DeadlineExceeded)
	cmd := newRootCmd(stubBuild(imagemigration.Summary{}, runErr, &got), &out)
	cmd.SetArgs([]string{"--model", "estandartes"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Empty(t, out.String())
}

func TestSetupErrorIsReturned(t *testing.T) {
	build := func(context.Context) (runFunc, func(), error) {
		return nil, nil, errors.New("connect to database: refused")
	}
	cmd := newRootCmd(build, &bytes.Buffer{})
	cmd.SetArgs([]string{})
	assert.EqualError(t, cmd.Execute(), "connect to database: refused")
}
