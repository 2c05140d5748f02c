package imageprocessor

import (
	"github.com/archivohistorico/heritage/internal/pkg/env"
)

// Default global settings
const (
	DefaultBasePath    = "images"
	DefaultWebPQuality = 80
)

// Config holds the global image settings
type Config struct {
	BasePath     string
	WebPEnabled  bool
	WebPQuality  int
	PoliciesFile string
}

// LoadConfig reads the image settings from the environment
func LoadConfig() Config {
	return Config{
		BasePath:     env.GetEnv("IMAGE_BASE_PATH", DefaultBasePath),
		WebPEnabled:  env.GetEnvBool("IMAGE_WEBP_ENABLED", true),
		WebPQuality:  clampQuality(env.GetEnvInt("IMAGE_WEBP_QUALITY", DefaultWebPQuality)),
		PoliciesFile: env.GetEnv("IMAGE_POLICIES_FILE", ""),
	}
}

func clampQuality(q int) int {
	if q < 0 {
		return 0
	}
	if q > 100 {
		return 100
	}
	return q
}
