// Package imagemigration moves images stored at legacy flat paths into the variant layout.
//
// Records are processed one at a time. Every step returns a Tally and the tallies are
// folded into the Summary, so a failing record never aborts the batch.
package imagemigration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/archivohistorico/heritage/app/repository"
	"github.com/archivohistorico/heritage/internal/pkg/imagepath"
	"github.com/archivohistorico/heritage/internal/pkg/imageprocessor"
	"github.com/archivohistorico/heritage/internal/pkg/storage"
)

// ErrUnknownModel is returned when Options.Model names no registered model
var ErrUnknownModel = errors.New("unknown model")

// Options controls a migration run
type Options struct {
	DryRun bool
	Force  bool
	Model  string
}

// Processor is the part of the image service the migration needs
type Processor interface {
	ProcessFromPath(ctx context.Context, existing, category string) (*imageprocessor.VariantSet, error)
	Delete(ctx context.Context, original, category string) error
}

// Migrator runs the legacy image migration
type Migrator struct {
	records *repository.Registry
	images  Processor
	store   storage.Backend
}

// New creates a migrator. store must be the backend images reads from.
func New(records *repository.Registry, images Processor, store storage.Backend) *Migrator {
	return &Migrator{records: records, images: images, store: store}
}

// Run migrates every model, or only opts.Model when set.
func (m *Migrator) Run(ctx context.Context, opts Options) (Summary, error) {
	repos := m.records.All()
	if opts.Model != "" {
		repo, ok := m.records.Get(opts.Model)
		if !ok {
			return Summary{}, fmt.Errorf("%w %q (available: %s)", ErrUnknownModel, opts.Model, strings.Join(m.records.Names(), ", "))
		}
		repos = []repository.ImageRecordRepository{repo}
	}

	summary := Summary{DryRun: opts.DryRun}
	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		t := m.migrateModel(ctx, repo, opts)
		summary.Models = append(summary.Models, ModelSummary{Model: repo.Model(), Tally: t})
		log.Infof("[ImageMigration] %s done: %d processed, %d skipped, %d errors",
			repo.Model(), t.Processed, t.Skipped, t.Errors)
	}
	return summary, nil
}

func (m *Migrator) migrateModel(ctx context.Context, repo repository.ImageRecordRepository, opts Options) Tally {
	var t Tally

	records, err := repo.FindWithImage(ctx, opts.Force)
	if err != nil {
		log.Errorf("[ImageMigration] %s: %v", repo.Model(), err)
		return failed
	}
	log.Infof("[ImageMigration] Migrating %s: %d record(s) with image", repo.Model(), len(records))

	for i, rec := range records {
		t = t.Add(m.migrateImage(ctx, repo, rec, opts))
		log.Debugf("[ImageMigration] %s %d/%d", repo.Model(), i+1, len(records))
	}

	if !repo.HasGallery() {
		return t
	}

	galleries, err := repo.FindWithGallery(ctx)
	if err != nil {
		log.Errorf("[ImageMigration] %s galleries: %v", repo.Model(), err)
		return t.Add(failed)
	}
	log.Infof("[ImageMigration] Migrating %s: %d gallery(ies)", repo.Model(), len(galleries))

	for _, rec := range galleries {
		t = t.Add(m.migrateGallery(ctx, repo, rec, opts))
	}
	return t
}

func (m *Migrator) migrateImage(ctx context.Context, repo repository.ImageRecordRepository, rec repository.ImageRecord, opts Options) Tally {
	if rec.Image.IsEmpty() {
		return skipped
	}
	if rec.Image.IsMigrated() && !opts.Force {
		return skipped
	}

	old := rec.Image.String()
	category := repo.Category()

	exists, err := m.store.Exists(ctx, old)
	if err != nil {
		log.Errorf("[ImageMigration] %s #%d: checking %s: %v", repo.Model(), rec.ID, old, err)
		return failed
	}
	if !exists {
		log.Warnf("[ImageMigration] %s #%d: file missing, skipped: %s", repo.Model(), rec.ID, old)
		return skipped
	}

	if opts.DryRun {
		log.Infof("[ImageMigration] [dry-run] %s #%d would migrate %s", repo.Model(), rec.ID, old)
		return processed
	}

	set, err := m.images.ProcessFromPath(ctx, old, category)
	if err != nil {
		log.Errorf("[ImageMigration] %s #%d: %v", repo.Model(), rec.ID, err)
		return failed
	}
	if set == nil {
		log.Errorf("[ImageMigration] %s #%d: %s disappeared during migration", repo.Model(), rec.ID, old)
		return failed
	}

	if err := repo.UpdateImage(ctx, rec.ID, set.Original); err != nil {
		log.Errorf("[ImageMigration] %s #%d: saving record: %v", repo.Model(), rec.ID, err)
		m.discard(ctx, set.Original, category)
		return failed
	}

	m.retire(ctx, rec.Image, category)
	log.Infof("[ImageMigration] %s #%d: %s -> %s", repo.Model(), rec.ID, old, set.Original)
	return processed
}

// migrateGallery rebuilds the gallery list in order. Entries whose file is missing are dropped.
func (m *Migrator) migrateGallery(ctx context.Context, repo repository.ImageRecordRepository, rec repository.ImageRecord, opts Options) Tally {
	var (
		t        Tally
		changed  bool
		out      = make([]string, 0, len(rec.Gallery))
		created  []string
		replaced []imagepath.StoredPath
	)
	category := repo.Category()

	for _, entry := range rec.Gallery {
		if entry.IsEmpty() {
			changed = true
			continue
		}
		if entry.IsMigrated() && !opts.Force {
			out = append(out, entry.String())
			t = t.Add(skipped)
			continue
		}

		old := entry.String()
		exists, err := m.store.Exists(ctx, old)
		if err != nil {
			log.Errorf("[ImageMigration] %s #%d gallery: checking %s: %v", repo.Model(), rec.ID, old, err)
			out = append(out, old)
			t = t.Add(failed)
			continue
		}
		if !exists {
			log.Warnf("[ImageMigration] %s #%d gallery: file missing, dropped: %s", repo.Model(), rec.ID, old)
			changed = true
			t = t.Add(skipped)
			continue
		}

		if opts.DryRun {
			log.Infof("[ImageMigration] [dry-run] %s #%d gallery would migrate %s", repo.Model(), rec.ID, old)
			out = append(out, old)
			t = t.Add(processed)
			continue
		}

		set, err := m.images.ProcessFromPath(ctx, old, category)
		if err != nil || set == nil {
			log.Errorf("[ImageMigration] %s #%d gallery: %s: %v", repo.Model(), rec.ID, old, err)
			out = append(out, old)
			t = t.Add(failed)
			continue
		}

		out = append(out, set.Original)
		created = append(created, set.Original)
		replaced = append(replaced, entry)
		changed = true
		t = t.Add(processed)
	}

	if !changed || opts.DryRun {
		return t
	}

	if err := repo.UpdateGallery(ctx, rec.ID, out); err != nil {
		log.Errorf("[ImageMigration] %s #%d: saving gallery: %v", repo.Model(), rec.ID, err)
		for _, p := range created {
			m.discard(ctx, p, category)
		}
		return t.Add(failed)
	}

	for _, r := range replaced {
		m.retire(ctx, r, category)
	}
	return t
}

// retire removes the source of a successful migration. Migrated sources lose all their variants.
func (m *Migrator) retire(ctx context.Context, old imagepath.StoredPath, category string) {
	var err error
	if old.IsMigrated() {
		err = m.images.Delete(ctx, old.String(), category)
	} else {
		err = m.store.Delete(ctx, old.String())
	}
	if err != nil {
		log.Warnf("[ImageMigration] Could not delete old file %s: %v", old, err)
	}
}

// discard removes variants whose record could not be saved
func (m *Migrator) discard(ctx context.Context, original, category string) {
	if err := m.images.Delete(ctx, original, category); err != nil {
		log.Warnf("[ImageMigration] Could not remove orphaned variants of %s: %v", original, err)
	}
}
