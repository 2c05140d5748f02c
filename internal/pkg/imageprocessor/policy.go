package imageprocessor

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

// Aspect selects how an image is fitted into its target box
type Aspect string

const (
	// AspectFlexible keeps the source ratio, scales down to fit and never enlarges.
	AspectFlexible Aspect = "flexible"
	// AspectFixed covers the box and crops the overflow around the center.
	AspectFixed Aspect = "fixed"
)

// Size is a target box in pixels
type Size struct {
	Width  int `yaml:"width" validate:"gt=0"`
	Height int `yaml:"height" validate:"gt=0"`
}

// Policy is the size and quality configuration of one image category
type Policy struct {
	Original  Size   `yaml:"original"`
	Thumbnail Size   `yaml:"thumbnail"`
	Quality   int    `yaml:"quality" validate:"gte=0,lte=100"`
	Aspect    Aspect `yaml:"aspect" validate:"oneof=flexible fixed"`
}

// DefaultCategory names the entry used for categories without their own policy
const DefaultCategory = "default"

// DefaultPolicy applies to every category missing from the table
var DefaultPolicy = Policy{
	Original:  Size{Width: 800, Height: 600},
	Thumbnail: Size{Width: 300, Height: 225},
	Quality:   85,
	Aspect:    AspectFlexible,
}

// BuiltinPolicies is the category table used when no policies file is configured
var BuiltinPolicies = map[string]Policy{
	"estandartes": {
		Original:  Size{Width: 800, Height: 600},
		Thumbnail: Size{Width: 300, Height: 225},
		Quality:   85,
		Aspect:    AspectFlexible,
	},
	"presidentes": {
		Original:  Size{Width: 400, Height: 500},
		Thumbnail: Size{Width: 150, Height: 188},
		Quality:   85,
		Aspect:    AspectFixed,
	},
	"publicaciones": {
		Original:  Size{Width: 600, Height: 800},
		Thumbnail: Size{Width: 200, Height: 267},
		Quality:   85,
		Aspect:    AspectFlexible,
	},
	"distinciones": {
		Original:  Size{Width: 600, Height: 600},
		Thumbnail: Size{Width: 200, Height: 200},
		Quality:   85,
		Aspect:    AspectFlexible,
	},
}

// Policies maps every category to a policy. Unknown categories resolve to the default entry.
type Policies struct {
	byCategory map[string]Policy
	fallback   Policy
}

// NewPolicies validates the table and builds the lookup.
// A "default" entry in the table replaces DefaultPolicy.
func NewPolicies(table map[string]Policy) (*Policies, error) {
	v := validator.New()

	p := &Policies{
		byCategory: make(map[string]Policy, len(table)),
		fallback:   DefaultPolicy,
	}
	for category, policy := range table {
		key := strings.ToLower(strings.TrimSpace(category))
		if policy.Aspect == "" {
			policy.Aspect = AspectFlexible
		}
		if err := v.Struct(policy); err != nil {
			return nil, fmt.Errorf("invalid image policy %q: %w", category, err)
		}
		if key == DefaultCategory {
			p.fallback = policy
			continue
		}
		p.byCategory[key] = policy
	}
	return p, nil
}

// Resolve returns the category's policy and true, or the default policy and false.
func (p *Policies) Resolve(category string) (Policy, bool) {
	policy, ok := p.byCategory[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		return p.fallback, false
	}
	return policy, true
}

// Default returns the fallback entry.
func (p *Policies) Default() Policy {
	return p.fallback
}

// Len returns the number of configured categories.
func (p *Policies) Len() int {
	return len(p.byCategory)
}

// policiesFile is the YAML layout of IMAGE_POLICIES_FILE
type policiesFile struct {
	Categories map[string]Policy `yaml:"categories"`
}

// LoadPolicies reads a YAML policy table. Categories in the file override the builtin ones.
func LoadPolicies(path string) (*Policies, error) {
	table := make(map[string]Policy, len(BuiltinPolicies))
	for k, v := range BuiltinPolicies {
		table[k] = v
	}
	if path == "" {
		return NewPolicies(table)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image policies file: %w", err)
	}

	var file policiesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse image policies file %s: %w", path, err)
	}
	for k, v := range file.Categories {
		table[k] = v
	}
	return NewPolicies(table)
}
