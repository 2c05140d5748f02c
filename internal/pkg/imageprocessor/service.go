// Package imageprocessor turns uploaded images into their stored variants.
//
// Every logical image is stored three times: a resized original, a thumbnail and,
// when enabled, a WebP transcode of the original. Only the original path is kept on
// records; the other two are derived through the imagepath package.
package imageprocessor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/archivohistorico/heritage/internal/pkg/imagepath"
	"github.com/archivohistorico/heritage/internal/pkg/storage"
)

// Upload is one image received from a client
type Upload struct {
	Filename string
	Data     []byte
}

// VariantSet holds the stored paths of one processed image.
// WebP is empty when WebP generation is disabled.
type VariantSet struct {
	Original  string `json:"original"`
	Thumbnail string `json:"thumbnail"`
	WebP      string `json:"webp,omitempty"`
}

// HasWebP reports whether the set carries a WebP variant
func (v VariantSet) HasWebP() bool {
	return v.WebP != ""
}

// URLSet holds the public URLs of the three variants. Absent variants are nil.
type URLSet struct {
	Original  *string `json:"original"`
	Thumbnail *string `json:"thumbnail"`
	WebP      *string `json:"webp"`
}

// Service orchestrates decoding, resizing, encoding and storing of image variants
type Service struct {
	store    storage.Backend
	policies *Policies
	gen      *Generator
	cfg      Config

	now func() time.Time
}

// NewService creates a service writing to store
func NewService(store storage.Backend, policies *Policies, cfg Config) *Service {
	return &Service{
		store:    store,
		policies: policies,
		gen:      NewGenerator(cfg.WebPQuality),
		cfg:      cfg,
		now:      time.Now,
	}
}

// Store returns the backend the service writes to
func (s *Service) Store() storage.Backend {
	return s.store
}

// WebPEnabled reports whether WebP variants are generated
func (s *Service) WebPEnabled() bool {
	return s.cfg.WebPEnabled
}

// Process decodes upload, retires previous (if set), then stores the variants under category.
// An upload that cannot be decoded leaves previous untouched.
func (s *Service) Process(ctx context.Context, upload Upload, category, previous string) (VariantSet, error) {
	pending, err := s.prepare(upload)
	if err != nil {
		return VariantSet{}, err
	}

	if previous != "" {
		if err := s.Delete(ctx, previous, category); err != nil {
			return VariantSet{}, err
		}
	}

	return s.storePending(ctx, pending, category)
}

// pendingImage is a decoded upload waiting to be stored
type pendingImage struct {
	img  image.Image
	stem string
	ext  string
}

// prepare decodes upload and picks its stem and extension without touching storage
func (s *Service) prepare(upload Upload) (pendingImage, error) {
	img, format, err := s.gen.Decode(upload.Data)
	if err != nil {
		return pendingImage{}, err
	}

	stem, err := imagepath.NewStem(upload.Filename, s.now())
	if err != nil {
		return pendingImage{}, err
	}

	ext := imagepath.NormalizeExt(path.Ext(upload.Filename))
	if ext == "" {
		ext = format
	}
	return pendingImage{img: img, stem: stem, ext: ext}, nil
}

func (s *Service) storePending(ctx context.Context, p pendingImage, category string) (VariantSet, error) {
	set, err := s.storeVariants(ctx, p.img, category, p.stem, p.ext)
	if err != nil {
		return VariantSet{}, err
	}

	log.Infof("[ImageService] Stored %s (%s)", set.Original, category)
	return set, nil
}

// ProcessFromPath re-processes an image already held by the backend.
// It returns nil and no error when existing is not in the backend.
func (s *Service) ProcessFromPath(ctx context.Context, existing, category string) (*VariantSet, error) {
	ok, err := s.store.Exists(ctx, existing)
	if err != nil {
		return nil, storageErr("exists", existing, err)
	}
	if !ok {
		return nil, nil
	}

	data, err := s.store.Get(ctx, existing)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, storageErr("get", existing, err)
	}

	img, format, err := s.gen.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", existing, err)
	}

	stem, err := imagepath.NewMigratedStem(existing, s.now())
	if err != nil {
		return nil, err
	}

	ext := imagepath.NormalizeExt(path.Ext(existing))
	if ext == "" {
		ext = format
	}

	set, err := s.storeVariants(ctx, img, category, stem, ext)
	if err != nil {
		return nil, err
	}

	log.Infof("[ImageService] Re-processed %s -> %s", existing, set.Original)
	return &set, nil
}

// ProcessGallery decodes every upload, deletes every previous path, then stores the uploads in order.
// An undecodable upload aborts the call before anything is deleted. A failing write aborts it
// too; the entries already stored by the call are removed.
func (s *Service) ProcessGallery(ctx context.Context, uploads []Upload, category string, previous []string) ([]string, error) {
	pending := make([]pendingImage, 0, len(uploads))
	for i, u := range uploads {
		p, err := s.prepare(u)
		if err != nil {
			return nil, fmt.Errorf("gallery image %d (%s): %w", i, u.Filename, err)
		}
		pending = append(pending, p)
	}

	for _, p := range previous {
		if err := s.Delete(ctx, p, category); err != nil {
			return nil, err
		}
	}

	paths := make([]string, 0, len(pending))
	for i, p := range pending {
		set, err := s.storePending(ctx, p, category)
		if err != nil {
			for _, done := range paths {
				if derr := s.Delete(ctx, done, category); derr != nil {
					log.Warnf("[ImageService] Cleanup of %s failed: %v", done, derr)
				}
			}
			return nil, fmt.Errorf("gallery image %d (%s): %w", i, uploads[i].Filename, err)
		}
		paths = append(paths, set.Original)
	}
	return paths, nil
}

// Delete removes the original and its derived variants. Missing files are skipped.
func (s *Service) Delete(ctx context.Context, original, category string) error {
	if original == "" {
		return nil
	}

	stored := imagepath.Parse(original)
	targets := []string{stored.Original()}
	if stored.IsMigrated() {
		targets = append(targets, stored.Thumbnail(), stored.WebP())
	}

	for _, p := range targets {
		ok, err := s.store.Exists(ctx, p)
		if err != nil {
			return storageErr("exists", p, err)
		}
		if !ok {
			continue
		}
		if err := s.store.Delete(ctx, p); err != nil {
			return storageErr("delete", p, err)
		}
		log.Debugf("[ImageService] Deleted %s", p)
	}
	return nil
}

// GetURLs resolves the public URLs of all variants of original without any I/O.
// Legacy paths have no derived variants: the thumbnail falls back to the original and WebP is nil.
func (s *Service) GetURLs(original, category string) URLSet {
	if original == "" {
		return URLSet{}
	}

	stored := imagepath.Parse(original)
	originalURL := s.store.URL(stored.Original())
	urls := URLSet{Original: &originalURL}

	if !stored.IsMigrated() {
		urls.Thumbnail = &originalURL
		return urls
	}

	thumbURL := s.store.URL(stored.Thumbnail())
	urls.Thumbnail = &thumbURL
	if s.cfg.WebPEnabled {
		webpURL := s.store.URL(stored.WebP())
		urls.WebP = &webpURL
	}
	return urls
}

type variantWrite struct {
	path string
	data []byte
}

// storeVariants renders every variant first and only then writes them, original first.
func (s *Service) storeVariants(ctx context.Context, img image.Image, category, stem, ext string) (VariantSet, error) {
	policy, known := s.policies.Resolve(category)
	if !known {
		log.Warnf("[ImageService] No policy for category %q, using default", category)
	}

	original := imagepath.New(s.cfg.BasePath, category, stem, ext)
	set := VariantSet{
		Original:  original.Original(),
		Thumbnail: original.Thumbnail(),
	}

	resized := s.gen.Resize(img, policy.Original, policy.Aspect)
	originalData, err := s.gen.Encode(resized, original.Ext(), policy.Quality)
	if err != nil {
		return VariantSet{}, err
	}

	thumb := s.gen.Resize(img, policy.Thumbnail, policy.Aspect)
	thumbData, err := s.gen.Encode(thumb, original.Ext(), policy.Quality)
	if err != nil {
		return VariantSet{}, err
	}

	writes := []variantWrite{
		{set.Original, originalData},
		{set.Thumbnail, thumbData},
	}

	if s.cfg.WebPEnabled {
		webpData, err := s.gen.EncodeWebP(resized)
		if err != nil {
			return VariantSet{}, err
		}
		set.WebP = original.WebP()
		writes = append(writes, variantWrite{set.WebP, webpData})
	}

	for i, w := range writes {
		if err := s.store.Put(ctx, w.path, w.data, storage.ContentTypeOf(w.path)); err != nil {
			s.rollback(ctx, writes[:i])
			return VariantSet{}, storageErr("put", w.path, err)
		}
	}
	return set, nil
}

func (s *Service) rollback(ctx context.Context, written []variantWrite) {
	for _, w := range written {
		if err := s.store.Delete(ctx, w.path); err != nil {
			log.Warnf("[ImageService] Rollback of %s failed: %v", w.path, err)
		}
	}
}
