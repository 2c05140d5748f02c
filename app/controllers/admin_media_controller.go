package controllers

import (
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/archivohistorico/heritage/app/models"
	"github.com/archivohistorico/heritage/app/repository"
	"github.com/archivohistorico/heritage/internal/pkg/imagepath"
	"github.com/archivohistorico/heritage/internal/pkg/storage"
)

// AdminMediaController stores audio, video and documents verbatim on the remote media store
type AdminMediaController struct {
	media repository.MediaRepository
	store storage.Backend
}

// NewAdminMediaController creates a media controller. store may be nil when no remote store is configured.
func NewAdminMediaController(media repository.MediaRepository, store storage.Backend) *AdminMediaController {
	return &AdminMediaController{media: media, store: store}
}

type mediaResponse struct {
	*models.Medio
	URL string `json:"url"`
}

// HandleUpload stores the form file "file" under a fresh UUID key
func (mc *AdminMediaController) HandleUpload(c *fiber.Ctx) error {
	if mc.store == nil {
		return errorResponse(c, fiber.NewError(fiber.StatusServiceUnavailable, "No media store configured"))
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return errorResponse(c, fiber.NewError(fiber.StatusBadRequest, "Missing form file \"file\""))
	}
	f, err := fh.Open()
	if err != nil {
		return errorResponse(c, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return errorResponse(c, err)
	}

	id := uuid.New().String()
	ext := imagepath.NormalizeExt(path.Ext(fh.Filename))
	key := path.Join(time.Now().UTC().Format("2006/01"), id)
	if ext != "" {
		key += "." + ext
	}

	contentType := storage.ContentTypeOf(key)
	if contentType == "application/octet-stream" {
		if declared := fh.Header.Get(fiber.HeaderContentType); declared != "" {
			contentType = declared
		}
	}

	ctx := c.UserContext()
	if err := mc.store.Put(ctx, key, data, contentType); err != nil {
		return errorResponse(c, err)
	}

	medio := &models.Medio{
		UUID:        id,
		Titulo:      strings.TrimSpace(c.FormValue("titulo")),
		FileName:    fh.Filename,
		ObjectKey:   key,
		ContentType: contentType,
		FileSize:    int64(len(data)),
	}
	if err := mc.media.Create(ctx, medio); err != nil {
		if derr := mc.store.Delete(ctx, key); derr != nil {
			fiberlog.Warnf("[Admin] Could not remove orphaned media object %s: %v", key, derr)
		}
		return errorResponse(c, err)
	}

	fiberlog.Infof("[Admin] Stored media %s (%s, %d bytes)", key, contentType, medio.FileSize)
	return c.Status(fiber.StatusCreated).JSON(mediaResponse{Medio: medio, URL: mc.store.URL(key)})
}

// HandleShow returns one media entry with its public URL
func (mc *AdminMediaController) HandleShow(c *fiber.Ctx) error {
	medio, err := mc.media.GetByUUID(c.UserContext(), c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, fiber.NewError(fiber.StatusNotFound, "Media not found"))
		}
		return errorResponse(c, err)
	}
	resp := mediaResponse{Medio: medio}
	if mc.store != nil {
		resp.URL = mc.store.URL(medio.ObjectKey)
	}
	return c.JSON(resp)
}

// HandleList returns media entries newest first (?page=, 50 per page)
func (mc *AdminMediaController) HandleList(c *fiber.Ctx) error {
	const perPage = 50
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	media, err := mc.media.List(c.UserContext(), (page-1)*perPage, perPage)
	if err != nil {
		return errorResponse(c, err)
	}

	out := make([]mediaResponse, 0, len(media))
	for i := range media {
		resp := mediaResponse{Medio: &media[i]}
		if mc.store != nil {
			resp.URL = mc.store.URL(media[i].ObjectKey)
		}
		out = append(out, resp)
	}
	return c.JSON(fiber.Map{"page": page, "media": out})
}

// HandleDelete removes the stored object and the entry
func (mc *AdminMediaController) HandleDelete(c *fiber.Ctx) error {
	ctx := c.UserContext()
	medio, err := mc.media.GetByUUID(ctx, c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, fiber.NewError(fiber.StatusNotFound, "Media not found"))
		}
		return errorResponse(c, err)
	}

	if mc.store != nil {
		if err := mc.store.Delete(ctx, medio.ObjectKey); err != nil {
			return errorResponse(c, err)
		}
	}
	if err := mc.media.Delete(ctx, medio.ID); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
