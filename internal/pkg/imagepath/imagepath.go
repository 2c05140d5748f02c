// Package imagepath derives the storage paths of the three variants of one logical image.
//
// Layout: {base}/{category}/{kind}/{stem}.{ext}, kind being originals, thumbnails or webp.
// The WebP variant always ends in .webp, the others keep the source extension.
// Every function here is pure; nothing touches storage.
package imagepath

import (
	"path"
	"strings"
)

// Variant directory names
const (
	OriginalsDir  = "originals"
	ThumbnailsDir = "thumbnails"
	WebPDir       = "webp"

	WebPExt = "webp"
)

const (
	originalsSegment  = "/" + OriginalsDir + "/"
	thumbnailsSegment = "/" + ThumbnailsDir + "/"
	webpSegment       = "/" + WebPDir + "/"
)

// Kind tells legacy flat paths apart from paths laid out in variant directories.
type Kind int

const (
	KindLegacy Kind = iota
	KindMigrated
)

func (k Kind) String() string {
	if k == KindMigrated {
		return "migrated"
	}
	return "legacy"
}

// StoredPath is a record's image field after it crossed the database boundary.
// Legacy paths only carry the raw string; migrated ones are split into their parts.
type StoredPath struct {
	raw      string
	kind     Kind
	base     string
	category string
	stem     string
	ext      string
}

// Parse tags a raw path read from a record. A path is migrated iff it contains "/originals/".
func Parse(raw string) StoredPath {
	i := strings.LastIndex(raw, originalsSegment)
	if i < 0 {
		return StoredPath{raw: raw, kind: KindLegacy}
	}

	prefix := raw[:i]
	name := raw[i+len(originalsSegment):]
	base, category := splitLast(prefix)
	ext := strings.TrimPrefix(path.Ext(name), ".")
	stem := strings.TrimSuffix(name, path.Ext(name))

	return StoredPath{
		raw:      raw,
		kind:     KindMigrated,
		base:     base,
		category: category,
		stem:     stem,
		ext:      ext,
	}
}

// New builds the migrated path of a freshly processed image.
func New(base, category, stem, ext string) StoredPath {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	dir := path.Join(base, category, OriginalsDir)
	if base == "" && category == "" {
		// keep the segment detectable even without a prefix
		dir = "/" + OriginalsDir
	}
	raw := dir + "/" + stem
	if ext != "" {
		raw += "." + ext
	}
	return StoredPath{
		raw:      raw,
		kind:     KindMigrated,
		base:     base,
		category: category,
		stem:     stem,
		ext:      ext,
	}
}

func (p StoredPath) String() string   { return p.raw }
func (p StoredPath) Kind() Kind       { return p.kind }
func (p StoredPath) IsMigrated() bool { return p.kind == KindMigrated }
func (p StoredPath) IsEmpty() bool    { return p.raw == "" }
func (p StoredPath) Base() string     { return p.base }
func (p StoredPath) Category() string { return p.category }
func (p StoredPath) Stem() string     { return p.stem }
func (p StoredPath) Ext() string      { return p.ext }

// Original returns the path of the primary variant (the raw path for legacy values).
func (p StoredPath) Original() string {
	return p.raw
}

// Thumbnail returns the thumbnail path, or "" for legacy paths.
func (p StoredPath) Thumbnail() string {
	if !p.IsMigrated() {
		return ""
	}
	return ThumbnailPathOf(p.raw)
}

// WebP returns the WebP path, or "" for legacy paths.
func (p StoredPath) WebP() string {
	if !p.IsMigrated() {
		return ""
	}
	return WebPPathOf(p.raw)
}

// ThumbnailPathOf swaps the originals segment for thumbnails. The extension is kept.
// The result is meaningless for paths without "/originals/".
func ThumbnailPathOf(original string) string {
	return replaceSegment(original, originalsSegment, thumbnailsSegment)
}

// WebPPathOf swaps the originals segment for webp and the extension for .webp.
// The result is meaningless for paths without "/originals/".
func WebPPathOf(original string) string {
	p := replaceSegment(original, originalsSegment, webpSegment)
	dir, name := path.Split(p)
	return dir + strings.TrimSuffix(name, path.Ext(name)) + "." + WebPExt
}

// OriginalPathOfThumbnail reverses ThumbnailPathOf.
func OriginalPathOfThumbnail(thumbnail string) string {
	return replaceSegment(thumbnail, thumbnailsSegment, originalsSegment)
}

// OriginalPathOfWebP reverses WebPPathOf. The source extension is lost in the WebP path,
// so callers pass it back in.
func OriginalPathOfWebP(webp, ext string) string {
	p := replaceSegment(webp, webpSegment, originalsSegment)
	dir, name := path.Split(p)
	stem := strings.TrimSuffix(name, path.Ext(name))
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return dir + stem
	}
	return dir + stem + "." + ext
}

// replaceSegment replaces the last occurrence of from inside the directory part of p.
func replaceSegment(p, from, to string) string {
	i := strings.LastIndex(p, from)
	if i < 0 {
		return p
	}
	return p[:i] + to + p[i+len(from):]
}

func splitLast(prefix string) (string, string) {
	i := strings.LastIndex(prefix, "/")
	if i < 0 {
		return "", prefix
	}
	return prefix[:i], prefix[i+1:]
}
