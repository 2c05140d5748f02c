package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/archivohistorico/heritage/app/repository"
	"github.com/archivohistorico/heritage/internal/pkg/cache"
	"github.com/archivohistorico/heritage/internal/pkg/imageprocessor"
	"github.com/archivohistorico/heritage/internal/pkg/viewmodel"
)

const metadataTTL = 10 * time.Minute

// AdminImageController manages the image and gallery fields of records
type AdminImageController struct {
	records *repository.Registry
	images  *imageprocessor.Service
}

// NewAdminImageController creates a new admin image controller
func NewAdminImageController(records *repository.Registry, images *imageprocessor.Service) *AdminImageController {
	return &AdminImageController{records: records, images: images}
}

// HandleUpload replaces the record image with the uploaded file (form field "image")
func (ac *AdminImageController) HandleUpload(c *fiber.Ctx) error {
	repo, rec, err := resolveRecord(c, ac.records)
	if err != nil {
		return errorResponse(c, err)
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return errorResponse(c, fiber.NewError(fiber.StatusBadRequest, "Missing form file \"image\""))
	}
	upload, err := readUpload(fh)
	if err != nil {
		return errorResponse(c, err)
	}

	ctx := c.UserContext()
	previous := rec.Image.String()

	set, err := ac.images.Process(ctx, upload, repo.Category(), previous)
	if err != nil {
		return errorResponse(c, err)
	}
	ac.forgetMetadata(ctx, previous)

	if err := repo.UpdateImage(ctx, rec.ID, set.Original); err != nil {
		ac.discard(ctx, set.Original, repo.Category())
		return errorResponse(c, err)
	}

	fiberlog.Infof("[Admin] %s #%d image set to %s", repo.Model(), rec.ID, set.Original)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"image": set,
		"urls":  ac.images.GetURLs(set.Original, repo.Category()),
	})
}

// HandleDelete removes every variant of the record image and clears the field
func (ac *AdminImageController) HandleDelete(c *fiber.Ctx) error {
	repo, rec, err := resolveRecord(c, ac.records)
	if err != nil {
		return errorResponse(c, err)
	}
	if rec.Image.IsEmpty() {
		return c.SendStatus(fiber.StatusNoContent)
	}

	ctx := c.UserContext()
	if err := ac.images.Delete(ctx, rec.Image.String(), repo.Category()); err != nil {
		return errorResponse(c, err)
	}
	ac.forgetMetadata(ctx, rec.Image.String())

	if err := repo.UpdateImage(ctx, rec.ID, ""); err != nil {
		return errorResponse(c, err)
	}

	fiberlog.Infof("[Admin] %s #%d image deleted", repo.Model(), rec.ID)
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleShow returns URLs and metadata of the record image and gallery
func (ac *AdminImageController) HandleShow(c *fiber.Ctx) error {
	repo, rec, err := resolveRecord(c, ac.records)
	if err != nil {
		return errorResponse(c, err)
	}

	ctx := c.UserContext()
	accept := c.Get(fiber.HeaderAccept)
	category := repo.Category()

	response := fiber.Map{"model": repo.Model(), "id": rec.ID, "image": nil}
	if !rec.Image.IsEmpty() {
		original := rec.Image.String()
		view := viewmodel.NewImage(original, ac.images.GetURLs(original, category), accept, ac.metadata(ctx, original))
		response["image"] = view
	}
	if repo.HasGallery() {
		response["gallery"] = viewmodel.Gallery(rec.GalleryPaths(), func(p string) imageprocessor.URLSet {
			return ac.images.GetURLs(p, category)
		}, accept)
	}
	return c.JSON(response)
}

// HandleGallery replaces the whole gallery with the uploaded files (form field "images")
func (ac *AdminImageController) HandleGallery(c *fiber.Ctx) error {
	repo, rec, err := resolveRecord(c, ac.records)
	if err != nil {
		return errorResponse(c, err)
	}
	if !repo.HasGallery() {
		return errorResponse(c, fiber.NewError(fiber.StatusNotFound, repo.Model()+" has no gallery"))
	}

	form, err := c.MultipartForm()
	if err != nil {
		return errorResponse(c, fiber.NewError(fiber.StatusBadRequest, "Invalid multipart form"))
	}
	files := form.File["images"]
	if len(files) == 0 {
		return errorResponse(c, fiber.NewError(fiber.StatusBadRequest, "Missing form files \"images\""))
	}

	uploads := make([]imageprocessor.Upload, 0, len(files))
	for _, fh := range files {
		u, err := readUpload(fh)
		if err != nil {
			return errorResponse(c, err)
		}
		uploads = append(uploads, u)
	}

	ctx := c.UserContext()
	previous := rec.GalleryPaths()
	paths, err := ac.images.ProcessGallery(ctx, uploads, repo.Category(), previous)
	if err != nil {
		return errorResponse(c, err)
	}
	ac.forgetMetadata(ctx, previous...)

	if err := repo.UpdateGallery(ctx, rec.ID, paths); err != nil {
		for _, p := range paths {
			ac.discard(ctx, p, repo.Category())
		}
		return errorResponse(c, err)
	}

	fiberlog.Infof("[Admin] %s #%d gallery replaced with %d image(s)", repo.Model(), rec.ID, len(paths))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"gallery": paths})
}

// metadata serves from the cache first. Read failures are logged and yield nil.
func (ac *AdminImageController) metadata(ctx context.Context, original string) *imageprocessor.Metadata {
	key := cache.ImageMetadataKey(original)

	var meta imageprocessor.Metadata
	err := cache.GetJSON(ctx, key, &meta)
	if err == nil {
		return &meta
	}
	if !errors.Is(err, cache.ErrMiss) {
		fiberlog.Warnf("[Admin] Metadata cache read failed for %s: %v", original, err)
	}

	meta, err = ac.images.Metadata(ctx, original)
	if err != nil {
		fiberlog.Warnf("[Admin] Could not read metadata of %s: %v", original, err)
		return nil
	}
	if err := cache.SetJSON(ctx, key, meta, metadataTTL); err != nil {
		fiberlog.Warnf("[Admin] Metadata cache write failed for %s: %v", original, err)
	}
	return &meta
}

func (ac *AdminImageController) forgetMetadata(ctx context.Context, originals ...string) {
	keys := make([]string, 0, len(originals))
	for _, p := range originals {
		if p != "" {
			keys = append(keys, cache.ImageMetadataKey(p))
		}
	}
	if err := cache.Delete(ctx, keys...); err != nil {
		fiberlog.Warnf("[Admin] Metadata cache invalidation failed: %v", err)
	}
}

// discard removes variants whose record could not be saved
func (ac *AdminImageController) discard(ctx context.Context, original, category string) {
	if err := ac.images.Delete(ctx, original, category); err != nil {
		fiberlog.Warnf("[Admin] Could not remove orphaned variants of %s: %v", original, err)
	}
}
