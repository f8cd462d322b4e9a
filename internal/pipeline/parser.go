package pipeline

import (
	"regexp"
	"strings"
)

// Field defaults used when the description text does not yield a value.
const (
	DefaultBodyStructure = "balanced bipedal creature"
	DefaultColorPalette  = "vibrant complementary colors"
	DefaultFeatures      = "expressive eyes and smooth skin"
)

// StructuredFields is the best-effort structured view of a free-text creature
// description produced by the describe stage.
type StructuredFields struct {
	BodyStructure string
	ColorPalette  string
	Features      string
}

// 容忍 markdown 加粗标记（**标签**: 值）。
var (
	bodyStructureRe = regexp.MustCompile(`(?i)body\s*structure\**\s*[:\-]\s*(.+)`)
	colorPaletteRe  = regexp.MustCompile(`(?i)colou?r\s*palette\**\s*[:\-]\s*(.+)`)
	featuresRe      = regexp.MustCompile(`(?i)(?:distinctive\s+)?features\**\s*[:\-]\s*(.+)`)
)

// ParseDescription extracts structured fields from a model's free-text
// description. Parsing is best effort: any field that cannot be extracted
// falls back to its documented default, and the function never fails.
func ParseDescription(text string) StructuredFields {
	fields := StructuredFields{
		BodyStructure: DefaultBodyStructure,
		ColorPalette:  DefaultColorPalette,
		Features:      DefaultFeatures,
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*• \t"))
		if line == "" {
			continue
		}
		if m := bodyStructureRe.FindStringSubmatch(line); m != nil {
			if v := cleanFieldValue(m[1]); v != "" {
				fields.BodyStructure = v
			}
			continue
		}
		if m := colorPaletteRe.FindStringSubmatch(line); m != nil {
			if v := cleanFieldValue(m[1]); v != "" {
				fields.ColorPalette = v
			}
			continue
		}
		if m := featuresRe.FindStringSubmatch(line); m != nil {
			if v := cleanFieldValue(m[1]); v != "" {
				fields.Features = v
			}
		}
	}

	return fields
}

func cleanFieldValue(value string) string {
	value = strings.TrimSpace(value)
	value = strings.Trim(value, `"'`)
	value = strings.TrimSuffix(value, ".")
	return strings.TrimSpace(value)
}

// EnhancePrompt renders the fields into the prompt handed to the enhance
// stage provider.
func (f StructuredFields) EnhancePrompt(fusionName string) string {
	name := strings.TrimSpace(fusionName)
	if name == "" {
		name = "the fused creature"
	}
	var b strings.Builder
	b.WriteString("High quality digital art of ")
	b.WriteString(name)
	b.WriteString(", a single fictional creature. ")
	b.WriteString("Body structure: ")
	b.WriteString(f.BodyStructure)
	b.WriteString(". Color palette: ")
	b.WriteString(f.ColorPalette)
	b.WriteString(". Distinctive features: ")
	b.WriteString(f.Features)
	b.WriteString(". Clean studio background, no text, no watermark.")
	return b.String()
}
