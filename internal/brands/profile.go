package brands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/brandmix/internal/shared"
)

const nameKey = "brand"

// Profile is a free-form brand description. The display name lives under the "brand" key.
type Profile struct {
	attrs *OrderedMap
}

// NewProfile wraps attrs; a nil map yields an empty profile.
func NewProfile(attrs *OrderedMap) *Profile {
	if attrs == nil {
		attrs = NewOrderedMap()
	}
	return &Profile{attrs: attrs}
}

// ParseProfile decodes a JSON object into a Profile, preserving key order.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: brand profile must be a JSON object: %v", shared.ErrValidation, err)
	}
	return &p, nil
}

// Name returns the trimmed display name, or "" when absent.
func (p *Profile) Name() string {
	return strings.TrimSpace(p.attrs.String(nameKey))
}

// ID derives the storage identifier from the name.
func (p *Profile) ID() string {
	return shared.Slugify(p.Name())
}

// Description returns brand_essence.core_identity when present.
func (p *Profile) Description() string {
	return p.attrs.Map("brand_essence").String("core_identity")
}

// Attributes exposes the underlying ordered document.
func (p *Profile) Attributes() *OrderedMap {
	return p.attrs
}

func (p *Profile) MarshalJSON() ([]byte, error) {
	return p.attrs.MarshalJSON()
}

func (p *Profile) UnmarshalJSON(data []byte) error {
	attrs := NewOrderedMap()
	if err := attrs.UnmarshalJSON(data); err != nil {
		return err
	}
	p.attrs = attrs
	return nil
}

// Summary is the listing view of a stored profile.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
