package pipeline

import (
	"strings"
	"testing"
)

func TestParseDescription(t *testing.T) {
	tests := []struct {
		name string
		text string
		want StructuredFields
	}{
		{
			name: "well-formed description",
			text: "Body structure: quadruped with a long tail\nColor palette: teal and orange\nDistinctive features: glowing fins",
			want: StructuredFields{
				BodyStructure: "quadruped with a long tail",
				ColorPalette:  "teal and orange",
				Features:      "glowing fins",
			},
		},
		{
			name: "bulleted markdown output",
			text: "- **Body structure**: stout biped.\n* Colour palette: pastel pink\n• Features: 'curled ears'",
			want: StructuredFields{
				BodyStructure: "stout biped",
				ColorPalette:  "pastel pink",
				Features:      "curled ears",
			},
		},
		{
			name: "empty input falls back to defaults",
			text: "",
			want: StructuredFields{
				BodyStructure: DefaultBodyStructure,
				ColorPalette:  DefaultColorPalette,
				Features:      DefaultFeatures,
			},
		},
		{
			name: "free prose without labels falls back",
			text: "This creature looks like a mix of a mouse and a plant, quite charming overall.",
			want: StructuredFields{
				BodyStructure: DefaultBodyStructure,
				ColorPalette:  DefaultColorPalette,
				Features:      DefaultFeatures,
			},
		},
		{
			name: "label with empty value keeps default",
			text: "Body structure:   \nColor palette: crimson",
			want: StructuredFields{
				BodyStructure: DefaultBodyStructure,
				ColorPalette:  "crimson",
				Features:      DefaultFeatures,
			},
		},
		{
			name: "british spelling and dash separator",
			text: "Colour palette - deep violet and silver",
			want: StructuredFields{
				BodyStructure: DefaultBodyStructure,
				ColorPalette:  "deep violet and silver",
				Features:      DefaultFeatures,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDescription(tt.text)
			if got.BodyStructure != tt.want.BodyStructure {
				t.Errorf("BodyStructure: expected %q, got %q", tt.want.BodyStructure, got.BodyStructure)
			}
			if got.ColorPalette != tt.want.ColorPalette {
				t.Errorf("ColorPalette: expected %q, got %q", tt.want.ColorPalette, got.ColorPalette)
			}
			if got.Features != tt.want.Features {
				t.Errorf("Features: expected %q, got %q", tt.want.Features, got.Features)
			}
		})
	}
}

func TestEnhancePromptContainsFields(t *testing.T) {
	fields := StructuredFields{
		BodyStructure: "serpentine body",
		ColorPalette:  "gold and black",
		Features:      "crystal horns",
	}

	prompt := fields.EnhancePrompt("Pikasaur")
	for _, fragment := range []string{"Pikasaur", "serpentine body", "gold and black", "crystal horns"} {
		if !strings.Contains(prompt, fragment) {
			t.Fatalf("expected prompt to contain %q, got %q", fragment, prompt)
		}
	}

	anon := fields.EnhancePrompt("   ")
	if !strings.Contains(anon, "the fused creature") {
		t.Fatalf("expected default name in prompt, got %q", anon)
	}
}
