// Package viewmodel shapes stored images for admin responses and public templates.
package viewmodel

import (
	"fmt"
	"strings"

	"github.com/archivohistorico/heritage/internal/pkg/imagepath"
	"github.com/archivohistorico/heritage/internal/pkg/imageprocessor"
)

// Image contains everything needed to render one record image
type Image struct {
	// Stored original path as kept on the record
	Path string `json:"path"`

	// Legacy images have no thumbnail or WebP variant
	Legacy bool `json:"legacy"`

	URLs imageprocessor.URLSet `json:"urls"`

	// URL picked for the requesting client (WebP when accepted and present)
	PreferredURL string `json:"preferred_url"`

	// Metadata of the original, nil when it could not be read
	Metadata *imageprocessor.Metadata `json:"metadata,omitempty"`

	// Human-readable size of the original
	Size string `json:"size,omitempty"`
}

// NewImage builds the view of original. accept is the client's Accept header.
func NewImage(original string, urls imageprocessor.URLSet, accept string, meta *imageprocessor.Metadata) Image {
	stored := imagepath.Parse(original)
	img := Image{
		Path:     original,
		Legacy:   !stored.IsEmpty() && !stored.IsMigrated(),
		URLs:     urls,
		Metadata: meta,
	}
	img.PreferredURL = PreferredURL(accept, urls)
	if meta != nil {
		img.Size = FormatBytes(meta.Size)
	}
	return img
}

// PreferredURL returns the WebP URL when the client accepts image/webp and the
// variant exists, the original URL otherwise. An empty set yields "".
func PreferredURL(accept string, urls imageprocessor.URLSet) string {
	if urls.WebP != nil && AcceptsWebP(accept) {
		return *urls.WebP
	}
	if urls.Original != nil {
		return *urls.Original
	}
	return ""
}

// AcceptsWebP reports whether an Accept header lists image/webp
func AcceptsWebP(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mediaType, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(mediaType), "image/webp") {
			continue
		}
		// image/webp;q=0 means explicitly refused
		return strings.ReplaceAll(strings.TrimSpace(params), " ", "") != "q=0"
	}
	return false
}

// Gallery returns the views of every entry, in order
func Gallery(originals []string, urls func(string) imageprocessor.URLSet, accept string) []Image {
	out := make([]Image, 0, len(originals))
	for _, p := range originals {
		out = append(out, NewImage(p, urls(p), accept, nil))
	}
	return out
}

// FormatBytes renders a byte count with binary units
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
