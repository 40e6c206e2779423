// Package recommend asks a language model for songs that fit a brand and parses its loosely formatted reply.
package recommend

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/brandmix/internal/brands"
)

// SuggestionCount is the number of songs requested per prompt.
const SuggestionCount = 10

const promptHeader = `You are a music curator with deep knowledge of music and brand aesthetics. Analyze this brand profile and suggest %d songs that embody the brand's aesthetic, values, and cultural positioning.

Brand Profile:
Name: %s
`

const promptFooter = `
For each song, explain how it specifically aligns with the brand's values and aesthetic.
Consider factors like:
- Production quality and sound matching the brand's sophistication level
- Lyrical themes aligning with brand values
- Artist image and cultural positioning
- Emotional resonance with the target audience
- Cultural relevance and zeitgeist alignment

Format each suggestion exactly as follows, with a blank line between suggestions:
Song: [title]
Artist: [name]
Why it fits: [explanation connecting to brand attributes]

Provide exactly %d suggestions and nothing else.`

// BuildPrompt renders the curator prompt for profile. Every attribute except the name is included,
// in document order, with nested keys flattened into "Parent / Child" labels.
func BuildPrompt(profile *brands.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, promptHeader, SuggestionCount, profile.Name())

	attrs := profile.Attributes()
	for _, key := range attrs.Keys() {
		if key == "brand" {
			continue
		}
		v, _ := attrs.Get(key)
		writeAttribute(&b, humanize(key), v)
	}

	fmt.Fprintf(&b, promptFooter, SuggestionCount)
	return b.String()
}

func writeAttribute(b *strings.Builder, label string, v any) {
	switch val := v.(type) {
	case nil:
	case *brands.OrderedMap:
		for _, key := range val.Keys() {
			nested, _ := val.Get(key)
			writeAttribute(b, label+" / "+humanize(key), nested)
		}
	case []any:
		if scalars, ok := joinScalars(val); ok {
			if scalars != "" {
				fmt.Fprintf(b, "%s: %s\n", label, scalars)
			}
			return
		}
		for i, item := range val {
			writeAttribute(b, fmt.Sprintf("%s %d", label, i+1), item)
		}
	default:
		if s := scalar(val); s != "" {
			fmt.Fprintf(b, "%s: %s\n", label, s)
		}
	}
}

func joinScalars(items []any) (string, bool) {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		switch item.(type) {
		case *brands.OrderedMap, []any:
			return "", false
		}
		if s := scalar(item); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", "), true
}

func scalar(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "yes"
		}
		return "no"
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

// humanize turns "core_identity" into "Core Identity".
func humanize(key string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(key))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
