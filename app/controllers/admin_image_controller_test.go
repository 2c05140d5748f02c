package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/archivohistorico/heritage/app/models"
	"github.com/archivohistorico/heritage/app/repository"
	"github.com/archivohistorico/heritage/internal/pkg/imagepath"
	"github.com/archivohistorico/heritage/internal/pkg/imageprocessor"
	"github.com/archivohistorico/heritage/internal/pkg/storage"
)

type fakeRecordRepo struct {
	model   string
	gallery bool
	images  map[uint64]string
	gals    map[uint64][]string
	failErr error
}

func (f *fakeRecordRepo) Model() string    { return f.model }
func (f *fakeRecordRepo) Category() string { return f.model }
func (f *fakeRecordRepo) HasGallery() bool { return f.gallery }

func (f *fakeRecordRepo) FindWithImage(context.Context, bool) ([]repository.ImageRecord, error) {
	return nil, nil
}

func (f *fakeRecordRepo) FindWithGallery(context.Context) ([]repository.ImageRecord, error) {
	return nil, nil
}

func (f *fakeRecordRepo) GetByID(_ context.Context, id uint64) (*repository.ImageRecord, error) {
	img, ok := f.images[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	rec := repository.ImageRecord{ID: id, Image: imagepath.Parse(img)}
	for _, p := range f.gals[id] {
		rec.Gallery = append(rec.Gallery, imagepath.Parse(p))
	}
	return &rec, nil
}

func (f *fakeRecordRepo) UpdateImage(_ context.Context, id uint64, path string) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.images[id] = path
	return nil
}

func (f *fakeRecordRepo) UpdateGallery(_ context.Context, id uint64, paths []string) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.gals[id] = paths
	return nil
}

type imageFixture struct {
	app         *fiber.App
	store       *storage.Memory
	estandartes *fakeRecordRepo
}

func newImageFixture(t *testing.T) *imageFixture {
	t.Helper()

	policies, err := imageprocessor.NewPolicies(imageprocessor.BuiltinPolicies)
	require.NoError(t, err)
	store := storage.NewMemory("/storage")
	svc := imageprocessor.NewService(store, policies, imageprocessor.Config{BasePath: "images", WebPEnabled: true, WebPQuality: 80})

	est := &fakeRecordRepo{model: "estandartes", gallery: true, images: map[uint64]string{1: ""}, gals: map[uint64][]string{}}
	pres := &fakeRecordRepo{model: "presidentes", images: map[uint64]string{1: ""}, gals: map[uint64][]string{}}

	ctrl := NewAdminImageController(repository.NewRegistry(est, pres), svc)
	app := fiber.New()
	app.Get("/admin/:model/:id/image", ctrl.HandleShow)
	app.Post("/admin/:model/:id/image", ctrl.HandleUpload)
	app.Delete("/admin/:model/:id/image", ctrl.HandleDelete)
	app.Post("/admin/:model/:id/gallery", ctrl.HandleGallery)

	return &imageFixture{app: app, store: store, estandartes: est}
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(w, h, color.NRGBA{R: 200, A: 255}), imaging.JPEG))
	return buf.Bytes()
}

type formFile struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, method, url string, files ...formFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, url, &body)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func TestUploadImage(t *testing.T) {
	f := newImageFixture(t)

	resp, err := f.app.Test(multipartRequest(t, "POST", "/admin/estandartes/1/image",
		formFile{"image", "Bandera Histórica.jpg", jpegBytes(t, 1200, 900)}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	stored := imagepath.Parse(f.estandartes.images[1])
	require.True(t, stored.IsMigrated())
	assert.Equal(t, "estandartes", stored.Category())
	assert.ElementsMatch(t, []string{stored.Original(), stored.Thumbnail(), stored.WebP()}, f.store.Keys())

	body := decodeBody(t, resp)
	urls := body["urls"].(map[string]any)
	assert.Equal(t, "/storage/"+stored.WebP(), urls["webp"])
}

func TestUploadReplacesPreviousImage(t *testing.T) {
	f := newImageFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Put(ctx, "old/flag.jpg", jpegBytes(t, 10, 10), "image/jpeg"))
	f.estandartes.images[1] = "old/flag.jpg"

	resp, err := f.app.Test(multipartRequest(t, "POST", "/admin/estandartes/1/image",
		formFile{"image", "new.jpg", jpegBytes(t, 400, 300)}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	ok, _ := f.store.Exists(ctx, "old/flag.jpg")
	assert.False(t, ok)
	assert.Len(t, f.store.Keys(), 3)
}

func TestUploadRejectsNonImage(t *testing.T) {
	f := newImageFixture(t)

	resp, err := f.app.Test(multipartRequest(t, "POST", "/admin/estandartes/1/image",
		formFile{"image", "notes.jpg", []byte("plain text")}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Empty(t, f.store.Keys())
	assert.Equal(t, "", f.estandartes.images[1])
}

func TestRejectedUploadKeepsCurrentImage(t *testing.T) {
	f := newImageFixture(t)
	ctx := context.Background()

	resp, err := f.app.Test(multipartRequest(t, "POST", "/admin/estandartes/1/image",
		formFile{"image", "a.jpg", jpegBytes(t, 120, 90)}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	current := f.estandartes.images[1]

	resp, err = f.app.Test(multipartRequest(t, "POST", "/admin/estandartes/1/image",
		formFile{"image", "acta.jpg", []byte("%PDF-1.4")}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	assert.Equal(t, current, f.estandartes.images[1])
	stored := imagepath.Parse(current)
	for _, p := range []string{stored.Original(), stored.Thumbnail(), stored.WebP()} {
		ok, err := f.store.Exists(ctx, p)
		require.NoError(t, err)
		assert.True(t, ok, p)
	}
}

func TestUploadStorageFailure(t *testing.T) {
	f := newImageFixture(t)
	f.store.FailPut = func(string) error { return errors.New("disk full") }

	resp, err := f.app.Test(multipartRequest(t, "POST", "/admin/estandartes/1/image",
		formFile{"image", "a.jpg", jpegBytes(t, 50, 50)}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "internal_server_error", body["error"])
	assert.NotContains(t, body, "detail")
}

func TestUploadSaveFailureRemovesVariants(t *testing.T) {
	f := newImageFixture(t)
	f.estandartes.failErr = errors.New("database gone")

	resp, err := f.app.Test(multipartRequest(t, "POST", "/admin/estandartes/1/image",
		formFile{"image", "a.jpg", jpegBytes(t, 50, 50)}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Empty(t, f.store.Keys())
}

func TestUploadRouting(t *testing.T) {
	f := newImageFixture(t)
	img := formFile{"image", "a.jpg", jpegBytes(t, 20, 20)}

	cases := []struct {
		url  string
		file formFile
		want int
	}{
		{"/admin/noticias/1/image", img, fiber.StatusNotFound},
		{"/admin/estandartes/99/image", img, fiber.StatusNotFound},
		{"/admin/estandartes/abc/image", img, fiber.StatusBadRequest},
		{"/admin/estandartes/1/image", formFile{"other", "a.jpg", img.data}, fiber.StatusBadRequest},
	}
	for _, tc := range cases {
		resp, err := f.app.Test(multipartRequest(t, "POST", tc.url, tc.file), -1)
		require.NoError(t, err)
		assert.Equal(t, tc.want, resp.StatusCode, tc.url)
	}
}

func TestDeleteImage(t *testing.T) {
	f := newImageFixture(t)

	resp, err := f.app.Test(multipartRequest(t, "POST", "/admin/estandartes/1/image",
		formFile{"image", "a.jpg", jpegBytes(t, 50, 50)}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	for i := 0; i < 2; i++ {
		resp, err = f.app.Test(httptest.NewRequest("DELETE", "/admin/estandartes/1/image", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}
	assert.Empty(t, f.store.Keys())
	assert.Equal(t, "", f.estandartes.images[1])
}

func TestShowImage(t *testing.T) {
	f := newImageFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Put(ctx, "old/flag.jpg", jpegBytes(t, 64, 48), "image/jpeg"))
	f.estandartes.images[1] = "old/flag.jpg"
	f.estandartes.gals[1] = []string{"images/estandartes/originals/a.jpg"}

	req := httptest.NewRequest("GET", "/admin/estandartes/1/image", nil)
	req.Header.Set(fiber.HeaderAccept, "image/webp,*/*")
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	img := body["image"].(map[string]any)
	assert.Equal(t, true, img["legacy"])
	assert.Equal(t, "/storage/old/flag.jpg", img["preferred_url"])
	meta := img["metadata"].(map[string]any)
	assert.EqualValues(t, 64, meta["width"])

	gallery := body["gallery"].([]any)
	require.Len(t, gallery, 1)
	assert.Equal(t, "/storage/images/estandartes/webp/a.webp", gallery[0].(map[string]any)["preferred_url"])
}

func TestShowImageWithoutImage(t *testing.T) {
	f := newImageFixture(t)

	resp, err := f.app.Test(httptest.NewRequest("GET", "/admin/presidentes/1/image", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Nil(t, body["image"])
	assert.NotContains(t, body, "gallery")
}

func TestGalleryUpload(t *testing.T) {
	f := newImageFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Put(ctx, "old/g1.jpg", jpegBytes(t, 10, 10), "image/jpeg"))
	f.estandartes.gals[1] = []string{"old/g1.jpg"}

	resp, err := f.app.Test(multipartRequest(t, "POST", "/admin/estandartes/1/gallery",
		formFile{"images", "uno.jpg", jpegBytes(t, 100, 80)},
		formFile{"images", "dos.png", jpegBytes(t, 80, 100)},
	), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	gallery := f.estandartes.gals[1]
	require.Len(t, gallery, 2)
	assert.Contains(t, gallery[0], "/originals/uno-")
	assert.Contains(t, gallery[1], "/originals/dos-")
	ok, _ := f.store.Exists(ctx, "old/g1.jpg")
	assert.False(t, ok)
	assert.Len(t, f.store.Keys(), 6)
}

func TestGalleryUploadFailureKeepsNothing(t *testing.T) {
	f := newImageFixture(t)

	resp, err := f.app.Test(multipartRequest(t, "POST", "/admin/estandartes/1/gallery",
		formFile{"images", "uno.jpg", jpegBytes(t, 100, 80)},
		formFile{"images", "broken.jpg", []byte("nope")},
	), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Empty(t, f.store.Keys())
	assert.Empty(t, f.estandartes.gals[1])
}

func TestGalleryOnModelWithoutGallery(t *testing.T) {
	f := newImageFixture(t)

	resp, err := f.app.Test(multipartRequest(t, "POST", "/admin/presidentes/1/gallery",
		formFile{"images", "uno.jpg", jpegBytes(t, 10, 10)}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

var _ repository.MediaRepository = (*fakeMediaRepo)(nil)

type fakeMediaRepo struct {
	items []models.Medio
}

func (f *fakeMediaRepo) Create(_ context.Context, m *models.Medio) error {
	m.ID = uint64(len(f.items) + 1)
	f.items = append(f.items, *m)
	return nil
}

func (f *fakeMediaRepo) GetByUUID(_ context.Context, uuid string) (*models.Medio, error) {
	for i := range f.items {
		if f.items[i].UUID == uuid {
			return &f.items[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMediaRepo) List(_ context.Context, offset, limit int) ([]models.Medio, error) {
	if offset >= len(f.items) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.items) {
		end = len(f.items)
	}
	return f.items[offset:end], nil
}

func (f *fakeMediaRepo) Delete(_ context.Context, id uint64) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}
