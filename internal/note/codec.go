package note

import (
	"bytes"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// fileHeader is the YAML frontmatter carried by every note file. Images are
// derived from the body at write time so other clients can prefetch assets;
// they are never read back.
type fileHeader struct {
	Title     string   `yaml:"title,omitempty"`
	Tags      []string `yaml:"tags"`
	Created   int64    `yaml:"created"`
	Updated   int64    `yaml:"updated"`
	Deleted   bool     `yaml:"deleted,omitempty"`
	DeletedAt int64    `yaml:"deletedAt,omitempty"`
	Template  bool     `yaml:"template,omitempty"`
	Images    []string `yaml:"images,omitempty"`
}

// Serialize renders n as a flat file: YAML frontmatter between --- fences,
// then the markdown body verbatim.
func Serialize(n *Note) (string, error) {
	hdr := fileHeader{
		Title:    n.Title,
		Tags:     n.Tags,
		Created:  n.CreatedAt,
		Updated:  n.UpdatedAt,
		Deleted:  n.Deleted,
		Template: n.IsTemplate,
		Images:   ExtractImages(n.Content),
	}
	if n.Tags == nil {
		hdr.Tags = []string{}
	}
	if n.DeletedAt != nil {
		hdr.DeletedAt = *n.DeletedAt
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(hdr); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	buf.WriteString("---\n")
	buf.WriteString(n.Content)
	return buf.String(), nil
}

// Deserialize parses a note file back into a Note with the given ID.
// Parsing is tolerant: a file without frontmatter is all body, absent tags
// mean an empty set, absent timestamps default to now, and a header that
// fails to parse is treated as body rather than failing the pull. Local-only
// fields (workspace, fingerprint, sync status) are left zero for the caller.
func Deserialize(text string, id string) (*Note, error) {
	var hdr fileHeader
	body, err := frontmatter.Parse(strings.NewReader(text), &hdr)
	if err != nil {
		hdr = fileHeader{}
		body = []byte(text)
	}

	now := time.Now().UnixMilli()
	n := &Note{
		ID:         id,
		Content:    string(body),
		Tags:       NormalizeTags(hdr.Tags),
		Title:      hdr.Title,
		IsTemplate: hdr.Template,
		Deleted:    hdr.Deleted,
		CreatedAt:  hdr.Created,
		UpdatedAt:  hdr.Updated,
	}
	if n.Title == "" {
		n.Title = ExtractTitle(n.Content)
	}
	if hdr.DeletedAt != 0 {
		deletedAt := hdr.DeletedAt
		n.DeletedAt = &deletedAt
	}
	if n.CreatedAt == 0 {
		n.CreatedAt = now
	}
	if n.UpdatedAt == 0 {
		n.UpdatedAt = now
	}
	return n, nil
}
