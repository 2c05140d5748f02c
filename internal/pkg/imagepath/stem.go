package imagepath

import (
	"crypto/rand"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// MigratedMarker separates stems produced by the legacy migration from upload stems.
	MigratedMarker = "migrated"

	defaultSlug   = "imagen"
	maxSlugLength = 60
	suffixLength  = 8
	stampLayout   = "20060102-150405"
)

// Lowercase base36 keeps stems stable on case-insensitive filesystems.
const suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewStem builds "{slug}-{timestamp}-{random}" from a client filename.
func NewStem(filename string, now time.Time) (string, error) {
	suffix, err := RandomSuffix(suffixLength)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s", Slugify(baseName(filename)), now.Format(stampLayout), suffix), nil
}

// NewMigratedStem builds "{slug}-migrated-{timestamp}-{random}" for files re-processed from storage.
func NewMigratedStem(existingPath string, now time.Time) (string, error) {
	suffix, err := RandomSuffix(suffixLength)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s-%s", Slugify(baseName(existingPath)), MigratedMarker, now.Format(stampLayout), suffix), nil
}

// IsMigratedStem reports whether a stem was produced by NewMigratedStem.
func IsMigratedStem(stem string) bool {
	return strings.Contains(stem, "-"+MigratedMarker+"-")
}

// Slugify folds accents, lowercases and joins alphanumeric runs with "-".
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		return defaultSlug
	}
	return slug
}

// RandomSuffix returns a cryptographically random base36 string.
func RandomSuffix(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid suffix length: %d", length)
	}

	// Rejection sampling to avoid modulo bias.
	// 252 is the largest multiple of 36 below 256.
	const maxRandomByte = 252

	out := make([]byte, length)
	buf := make([]byte, length*2)
	written := 0

	for written < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read secure random bytes: %w", err)
		}

		for _, b := range buf {
			if b >= maxRandomByte {
				continue
			}
			out[written] = suffixAlphabet[int(b)%len(suffixAlphabet)]
			written++
			if written == length {
				break
			}
		}
	}

	return string(out), nil
}

// NormalizeExt lowercases an extension and drops the leading dot.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func baseName(p string) string {
	name := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(name, path.Ext(name))
}
