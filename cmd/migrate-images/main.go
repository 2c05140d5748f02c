package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"

	"github.com/archivohistorico/heritage/app/repository"
	"github.com/archivohistorico/heritage/internal/pkg/database"
	"github.com/archivohistorico/heritage/internal/pkg/env"
	"github.com/archivohistorico/heritage/internal/pkg/imagemigration"
	"github.com/archivohistorico/heritage/internal/pkg/imageprocessor"
	"github.com/archivohistorico/heritage/internal/pkg/storage"
)

// runFunc executes one migration run
type runFunc func(ctx context.Context, opts imagemigration.Options) (imagemigration.Summary, error)

// errFailedRecords marks a run that finished with per-record errors
var errFailedRecords = errors.New("migration finished with errors")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(setup, os.Stdout)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(build func(ctx context.Context) (runFunc, func(), error), out io.Writer) *cobra.Command {
	var opts imagemigration.Options

	cmd := &cobra.Command{
		Use:   "migrate-images",
		Short: "Move legacy image paths into the originals/thumbnails/webp layout",
		Long: "Re-processes every record image still stored at a legacy flat path, writes its\n" +
			"variants and updates the record. Galleries are migrated entry by entry.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkModel(opts.Model); err != nil {
				return err
			}

			run, cleanup, err := build(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if opts.DryRun {
				log.Info("[ImageMigration] Dry run: no files or records will be changed")
			}

			summary, err := run(cmd.Context(), opts)
			if err != nil {
				return err
			}

			fmt.Fprintln(out)
			if err := summary.WriteTable(out); err != nil {
				return err
			}
			if summary.Failed() {
				return fmt.Errorf("%w: %d error(s)", errFailedRecords, summary.Errors())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report what would be migrated without changing anything")
	cmd.Flags().StringVar(&opts.Model, "model", "", "migrate only this model (estandartes, presidentes, publicaciones, distinciones)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "re-process images that are already migrated")
	return cmd
}

// checkModel rejects an unknown --model before anything connects to the database
func checkModel(model string) error {
	model = strings.ToLower(strings.TrimSpace(model))
	if model == "" {
		return nil
	}
	names := make([]string, 0, len(repository.RecordColumns))
	for _, cols := range repository.RecordColumns {
		if cols.Model == model {
			return nil
		}
		names = append(names, cols.Model)
	}
	return fmt.Errorf("%w %q (available: %s)", imagemigration.ErrUnknownModel, model, strings.Join(names, ", "))
}

// setup wires the database, the public disk and the image service
func setup(ctx context.Context) (runFunc, func(), error) {
	env.SetupEnvFile()

	if err := database.SetupDatabase(); err != nil {
		return nil, nil, err
	}

	imageCfg := imageprocessor.LoadConfig()
	policies, err := imageprocessor.LoadPolicies(imageCfg.PoliciesFile)
	if err != nil {
		database.Close()
		return nil, nil, err
	}

	disk := storage.NewPublicDisk(storage.LoadConfig())
	log.Infof("[ImageMigration] Reading images from %s", disk.Root())

	repository.InitializeFactory(database.GetDB())
	records := repository.GetGlobalFactory().GetImageRecords()

	service := imageprocessor.NewService(disk, policies, imageCfg)
	migrator := imagemigration.New(records, service, disk)
	return migrator.Run, database.Close, nil
}
