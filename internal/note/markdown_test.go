package note

import (
	"reflect"
	"testing"
)

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "h1 first line",
			content: "# Groceries\n\n- milk\n- eggs",
			want:    "Groceries",
		},
		{
			name:    "h2 heading",
			content: "## Weekly plan\n\ntext",
			want:    "Weekly plan",
		},
		{
			name:    "heading after paragraph",
			content: "intro text\n\n# Real Title\n\nbody",
			want:    "Real Title",
		},
		{
			name:    "no heading",
			content: "just a paragraph\nwith two lines",
			want:    "",
		},
		{
			name:    "heading with emphasis",
			content: "# My *great* plan\n",
			want:    "My great plan",
		},
		{
			name:    "heading inside code fence ignored",
			content: "```\n# not a title\n```\n\n# Actual\n",
			want:    "Actual",
		},
		{
			name:    "empty content",
			content: "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTitle(tt.content)
			if got != tt.want {
				t.Errorf("ExtractTitle(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestExtractTags(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "basic tags",
			content: "note about #golang and #sync",
			want:    []string{"golang", "sync"},
		},
		{
			name:    "deduplicated and lowercased",
			content: "#Todo again #todo and #TODO",
			want:    []string{"todo"},
		},
		{
			name:    "sorted output",
			content: "#zebra then #alpha",
			want:    []string{"alpha", "zebra"},
		},
		{
			name:    "code span skipped",
			content: "use `#include` and #cpp",
			want:    []string{"cpp"},
		},
		{
			name:    "fenced block skipped",
			content: "```sh\necho #comment\n```\n\n#shell\n",
			want:    []string{"shell"},
		},
		{
			name:    "mid-word hash rejected",
			content: "c#like and issue#42 but #real",
			want:    []string{"real"},
		},
		{
			name:    "double hash rejected",
			content: "##notatag but #yes",
			want:    []string{"yes"},
		},
		{
			name:    "heading marker is not a tag",
			content: "# Title\n\nbody #one",
			want:    []string{"one"},
		},
		{
			name:    "nested tag with slash and dash",
			content: "#project/sync-engine is live",
			want:    []string{"project/sync-engine"},
		},
		{
			name:    "reserved conflict tag not derived from body",
			content: "this mentions #conflict and #merge",
			want:    []string{"merge"},
		},
		{
			name:    "punctuation terminates tag",
			content: "done (#done), next: #next.",
			want:    []string{"done", "next"},
		},
		{
			name:    "no tags",
			content: "plain text only",
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTags(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractTags(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestExtractImages(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "bare filename kept",
			content: "see ![sketch](sketch.png) here",
			want:    []string{"sketch.png"},
		},
		{
			name:    "url skipped",
			content: "![remote](https://example.com/a.png) and ![local](b.png)",
			want:    []string{"b.png"},
		},
		{
			name:    "path skipped",
			content: "![nested](assets/c.png)",
			want:    nil,
		},
		{
			name:    "deduplicated in document order",
			content: "![a](z.png) ![b](a.png) ![c](z.png)",
			want:    []string{"z.png", "a.png"},
		},
		{
			name:    "no images",
			content: "text only",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractImages(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractImages(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "lowercase and dedupe preserving order",
			input: []string{"B", "a", "b", " A "},
			want:  []string{"b", "a"},
		},
		{
			name:  "empty entries dropped",
			input: []string{"", "  ", "x"},
			want:  []string{"x"},
		},
		{
			name:  "nil input",
			input: nil,
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTags(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeTags(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
