package controllers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/archivohistorico/heritage/app/repository"
	"github.com/archivohistorico/heritage/internal/pkg/env"
	"github.com/archivohistorico/heritage/internal/pkg/imageprocessor"
	"github.com/archivohistorico/heritage/internal/pkg/storage"
)

// errorResponse maps service errors to status codes. Details are only exposed in dev.
func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	code := "internal_server_error"
	message := "Internal server error"

	var (
		storageErr *imageprocessor.StorageError
		fiberErr   *fiber.Error
	)
	switch {
	case errors.As(err, &fiberErr):
		status, message = fiberErr.Code, fiberErr.Message
		code = statusCode(fiberErr.Code)
	case errors.Is(err, imageprocessor.ErrDecode):
		status, code, message = fiber.StatusUnprocessableEntity, "invalid_image", "The file is not a supported image"
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, storage.ErrNotFound):
		status, code, message = fiber.StatusNotFound, "not_found", "Not found"
	case errors.As(err, &storageErr):
		message = "Storage operation failed"
	}

	if status >= fiber.StatusInternalServerError {
		fiberlog.Errorf("[Admin] %s %s: %v", c.Method(), c.Path(), err)
	}

	body := fiber.Map{"error": code, "message": message}
	if env.IsDev() {
		body["detail"] = err.Error()
	}
	return c.Status(status).JSON(body)
}

func statusCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "bad_request"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusServiceUnavailable:
		return "service_unavailable"
	case fiber.StatusRequestEntityTooLarge:
		return "too_large"
	default:
		return "error"
	}
}

// resolveRecord looks up the :model repository and the :id record.
// Client mistakes come back as *fiber.Error.
func resolveRecord(c *fiber.Ctx, records *repository.Registry) (repository.ImageRecordRepository, *repository.ImageRecord, error) {
	repo, ok := records.Get(c.Params("model"))
	if !ok {
		return nil, nil, fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("Unknown model %q", c.Params("model")))
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return nil, nil, fiber.NewError(fiber.StatusBadRequest, "Invalid record id")
	}

	rec, err := repo.GetByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("%s %d not found", repo.Model(), id))
		}
		return nil, nil, err
	}
	return repo, rec, nil
}

// readUpload loads a multipart file into memory
func readUpload(fh *multipart.FileHeader) (imageprocessor.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return imageprocessor.Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return imageprocessor.Upload{}, err
	}
	return imageprocessor.Upload{Filename: fh.Filename, Data: data}, nil
}
