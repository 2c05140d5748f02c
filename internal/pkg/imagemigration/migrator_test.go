package imagemigration_test

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"sort"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivohistorico/heritage/app/repository"
	"github.com/archivohistorico/heritage/internal/pkg/imagemigration"
	"github.com/archivohistorico/heritage/internal/pkg/imagepath"
	"github.com/archivohistorico/heritage/internal/pkg/imageprocessor"
	"github.com/archivohistorico/heritage/internal/pkg/storage"
)

// fakeRecords is an in-memory ImageRecordRepository. FindWithImage returns every non-empty
// image regardless of force so the Migrator's own skip rules are what get exercised.
type fakeRecords struct {
	model    string
	gallery  bool
	images   map[uint64]string
	gals     map[uint64][]string
	failSave bool

	galleryWrites int
}

func newFakeRecords(model string, gallery bool) *fakeRecords {
	return &fakeRecords{model: model, gallery: gallery, images: map[uint64]string{}, gals: map[uint64][]string{}}
}

func (f *fakeRecords) Model() string    { return f.model }
func (f *fakeRecords) Category() string { return f.model }
func (f *fakeRecords) HasGallery() bool { return f.gallery }

func (f *fakeRecords) ids() []uint64 {
	seen := map[uint64]bool{}
	for id := range f.images {
		seen[id] = true
	}
	for id := range f.gals {
		seen[id] = true
	}
	out := make([]uint64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (f *fakeRecords) record(id uint64) repository.ImageRecord {
	rec := repository.ImageRecord{ID: id, Image: imagepath.Parse(f.images[id])}
	for _, p := range f.gals[id] {
		rec.Gallery = append(rec.Gallery, imagepath.Parse(p))
	}
	return rec
}

func (f *fakeRecords) FindWithImage(ctx context.Context, _ bool) ([]repository.ImageRecord, error) {
	var out []repository.ImageRecord
	for _, id := range f.ids() {
		if f.images[id] == "" {
			continue
		}
		out = append(out, f.record(id))
	}
	return out, nil
}

func (f *fakeRecords) FindWithGallery(ctx context.Context) ([]repository.ImageRecord, error) {
	var out []repository.ImageRecord
	for _, id := range f.ids() {
		if len(f.gals[id]) > 0 {
			out = append(out, f.record(id))
		}
	}
	return out, nil
}

func (f *fakeRecords) GetByID(ctx context.Context, id uint64) (*repository.ImageRecord, error) {
	rec := f.record(id)
	return &rec, nil
}

func (f *fakeRecords) UpdateImage(ctx context.Context, id uint64, path string) error {
	if f.failSave {
		return errors.New("database is read-only")
	}
	f.images[id] = path
	return nil
}

func (f *fakeRecords) UpdateGallery(ctx context.Context, id uint64, paths []string) error {
	if f.failSave {
		return errors.New("database is read-only")
	}
	f.galleryWrites++
	f.gals[id] = append([]string(nil), paths...)
	return nil
}

type fixture struct {
	store       *storage.Memory
	service     *imageprocessor.Service
	estandartes *fakeRecords
	presidentes *fakeRecords
	migrator    *imagemigration.Migrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	policies, err := imageprocessor.NewPolicies(imageprocessor.BuiltinPolicies)
	require.NoError(t, err)

	store := storage.NewMemory("/storage")
	svc := imageprocessor.NewService(store, policies, imageprocessor.Config{
		BasePath:    "images",
		WebPEnabled: true,
		WebPQuality: 80,
	})

	est := newFakeRecords("estandartes", true)
	pres := newFakeRecords("presidentes", false)
	registry := repository.NewRegistry(est, pres)

	return &fixture{
		store:       store,
		service:     svc,
		estandartes: est,
		presidentes: pres,
		migrator:    imagemigration.New(registry, svc, store),
	}
}

func (f *fixture) putImage(t *testing.T, p string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(640, 480, color.NRGBA{G: 120, A: 255}), imaging.JPEG))
	require.NoError(t, f.store.Put(context.Background(), p, buf.Bytes(), "image/jpeg"))
}

func (f *fixture) snapshot(t *testing.T) map[string]string {
	t.Helper()
	out := map[string]string{}
	for _, k := range f.store.Keys() {
		data, err := f.store.Get(context.Background(), k)
		require.NoError(t, err)
		out[k] = string(data)
	}
	return out
}

func TestMigrationSelection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	const current = "images/presidentes/originals/retrato-20240101-120000-abcdefgh.jpg"
	f.putImage(t, current)
	f.putImage(t, "fotos/retrato.jpg")
	f.presidentes.images[1] = current
	f.presidentes.images[2] = "fotos/retrato.jpg"

	summary, err := f.migrator.Run(ctx, imagemigration.Options{Model: "presidentes"})
	require.NoError(t, err)
	assert.Equal(t, imagemigration.Tally{Processed: 1, Skipped: 1}, summary.Total())
	assert.Equal(t, current, f.presidentes.images[1], "migrated paths are left alone without force")
	ok, _ := f.store.Exists(ctx, current)
	assert.True(t, ok)
	assert.True(t, imagepath.Parse(f.presidentes.images[2]).IsMigrated())

	summary, err = f.migrator.Run(ctx, imagemigration.Options{Model: "presidentes", Force: true})
	require.NoError(t, err)
	assert.Equal(t, imagemigration.Tally{Processed: 2}, summary.Total())
	assert.NotEqual(t, current, f.presidentes.images[1])
	ok, _ = f.store.Exists(ctx, current)
	assert.False(t, ok, "force retires the previous original")
}

func TestMigrateLegacyImages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.putImage(t, "old/flag.jpg")
	f.putImage(t, "fotos/presidente.JPG")
	f.estandartes.images[1] = "old/flag.jpg"
	f.estandartes.images[2] = "old/missing.jpg"
	f.estandartes.images[3] = "estandartes/originals/already-20240101-120000-abcdefgh.jpg"
	f.presidentes.images[1] = "fotos/presidente.JPG"

	summary, err := f.migrator.Run(ctx, imagemigration.Options{})
	require.NoError(t, err)

	require.Len(t, summary.Models, 2)
	assert.Equal(t, "estandartes", summary.Models[0].Model)
	assert.Equal(t, imagemigration.Tally{Processed: 1, Skipped: 2}, summary.Models[0].Tally)
	assert.Equal(t, imagemigration.Tally{Processed: 1}, summary.Models[1].Tally)
	assert.False(t, summary.Failed())

	migrated := imagepath.Parse(f.estandartes.images[1])
	require.True(t, migrated.IsMigrated())
	assert.True(t, imagepath.IsMigratedStem(migrated.Stem()))
	assert.Equal(t, "estandartes", migrated.Category())
	assert.Equal(t, "old/missing.jpg", f.estandartes.images[2], "missing files leave the field unchanged")

	ok, _ := f.store.Exists(ctx, "old/flag.jpg")
	assert.False(t, ok, "legacy file is deleted")
	for _, p := range []string{migrated.Original(), migrated.Thumbnail(), migrated.WebP()} {
		ok, _ := f.store.Exists(ctx, p)
		assert.True(t, ok, p)
	}

	pres := imagepath.Parse(f.presidentes.images[1])
	assert.Equal(t, "jpg", pres.Ext())
	assert.True(t, strings.HasPrefix(pres.String(), "images/presidentes/originals/presidente-migrated-"))
}

func TestMigrationDryRunIsPure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	legacy := []string{"old/a.jpg", "old/b.jpg", "old/c.jpg"}
	for i, p := range legacy {
		f.putImage(t, p)
		f.estandartes.images[uint64(i+1)] = p
	}
	f.estandartes.gals[1] = []string{"old/a.jpg", "old/gone.jpg"}

	before := f.snapshot(t)

	summary, err := f.migrator.Run(ctx, imagemigration.Options{DryRun: true, Model: "estandartes"})
	require.NoError(t, err)

	assert.Equal(t, before, f.snapshot(t))
	for i, p := range legacy {
		assert.Equal(t, p, f.estandartes.images[uint64(i+1)])
	}
	assert.Equal(t, []string{"old/a.jpg", "old/gone.jpg"}, f.estandartes.gals[1])
	assert.Zero(t, f.estandartes.galleryWrites)

	require.Len(t, summary.Models, 1)
	assert.Equal(t, 3+1, summary.Models[0].Processed)
	assert.True(t, summary.DryRun)
}

func TestMigrationUnknownModel(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.putImage(t, "old/flag.jpg")
	f.estandartes.images[1] = "old/flag.jpg"

	summary, err := f.migrator.Run(context.Background(), imagemigration.Options{Model: "noticias"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, imagemigration.ErrUnknownModel))
	assert.Empty(t, summary.Models)
	assert.Equal(t, "old/flag.jpg", f.estandartes.images[1])
}

func TestMigrationCountsErrorsAndContinues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.Put(ctx, "old/corrupt.jpg", []byte("not an image"), "image/jpeg"))
	f.putImage(t, "old/good.jpg")
	f.estandartes.images[1] = "old/corrupt.jpg"
	f.estandartes.images[2] = "old/good.jpg"

	summary, err := f.migrator.Run(ctx, imagemigration.Options{Model: "estandartes"})
	require.NoError(t, err)
	assert.Equal(t, imagemigration.Tally{Processed: 1, Errors: 1}, summary.Total())
	assert.True(t, summary.Failed())
	assert.Equal(t, "old/corrupt.jpg", f.estandartes.images[1])
	assert.True(t, imagepath.Parse(f.estandartes.images[2]).IsMigrated())
}

func TestMigrationSaveFailureRemovesNewVariants(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.putImage(t, "old/flag.jpg")
	f.estandartes.images[1] = "old/flag.jpg"
	f.estandartes.failSave = true

	summary, err := f.migrator.Run(ctx, imagemigration.Options{Model: "estandartes"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors())
	assert.Equal(t, []string{"old/flag.jpg"}, f.store.Keys(), "source kept, new variants discarded")
}

func TestMigrationForceRetiresPreviousVariants(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.putImage(t, "old/flag.jpg")
	f.estandartes.images[1] = "old/flag.jpg"

	_, err := f.migrator.Run(ctx, imagemigration.Options{Model: "estandartes"})
	require.NoError(t, err)
	first := imagepath.Parse(f.estandartes.images[1])
	require.True(t, first.IsMigrated())

	summary, err := f.migrator.Run(ctx, imagemigration.Options{Model: "estandartes"})
	require.NoError(t, err)
	assert.Equal(t, imagemigration.Tally{Skipped: 1}, summary.Total(), "migrated records are skipped without force")

	summary, err = f.migrator.Run(ctx, imagemigration.Options{Model: "estandartes", Force: true})
	require.NoError(t, err)
	assert.Equal(t, imagemigration.Tally{Processed: 1}, summary.Total())

	second := imagepath.Parse(f.estandartes.images[1])
	require.True(t, second.IsMigrated())
	assert.NotEqual(t, first.String(), second.String())
	assert.ElementsMatch(t, []string{second.Original(), second.Thumbnail(), second.WebP()}, f.store.Keys())
}

func TestMigrateGalleryDropsMissingEntries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.putImage(t, "galeria/uno.jpg")
	f.putImage(t, "galeria/tres.jpg")
	f.estandartes.gals[1] = []string{"galeria/uno.jpg", "galeria/dos.jpg", "galeria/tres.jpg"}

	summary, err := f.migrator.Run(ctx, imagemigration.Options{Model: "estandartes"})
	require.NoError(t, err)
	assert.Equal(t, imagemigration.Tally{Processed: 2, Skipped: 1}, summary.Total())

	gallery := f.estandartes.gals[1]
	require.Len(t, gallery, 2)
	assert.True(t, strings.HasPrefix(imagepath.Parse(gallery[0]).Stem(), "uno-migrated-"))
	assert.True(t, strings.HasPrefix(imagepath.Parse(gallery[1]).Stem(), "tres-migrated-"))
	assert.Equal(t, 1, f.estandartes.galleryWrites)

	ok, _ := f.store.Exists(ctx, "galeria/uno.jpg")
	assert.False(t, ok)
}

func TestMigrateGalleryUnchangedIsNotWritten(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.estandartes.gals[1] = []string{"images/estandartes/originals/a-20240101-120000-abcdefgh.jpg"}

	summary, err := f.migrator.Run(context.Background(), imagemigration.Options{Model: "estandartes"})
	require.NoError(t, err)
	assert.Equal(t, imagemigration.Tally{Skipped: 1}, summary.Total())
	assert.Zero(t, f.estandartes.galleryWrites)
}

func TestSummaryTable(t *testing.T) {
	t.Parallel()

	s := imagemigration.Summary{
		DryRun: true,
		Models: []imagemigration.ModelSummary{
			{Model: "estandartes", Tally: imagemigration.Tally{Processed: 3, Skipped: 1}},
			{Model: "presidentes", Tally: imagemigration.Tally{Errors: 2}},
		},
	}
	assert.Equal(t, imagemigration.Tally{Processed: 3, Skipped: 1, Errors: 2}, s.Total())
	assert.True(t, s.Failed())

	var buf bytes.Buffer
	require.NoError(t, s.WriteTable(&buf))
	out := buf.String()
	assert.Contains(t, out, "PROCESSED")
	assert.Contains(t, out, "estandartes")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "dry run")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 5)
}
