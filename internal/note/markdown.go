package note

import (
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// mdParser is the shared CommonMark parser. Parsers carry no per-parse
// state, so one instance serves all goroutines.
var mdParser parser.Parser = goldmark.DefaultParser()

// hashtagPattern matches an inline #hashtag: a hash followed by an
// alphanumeric start and any run of word, slash, or dash characters.
var hashtagPattern = regexp.MustCompile(`#([A-Za-z0-9][A-Za-z0-9_/-]*)`)

// ExtractTitle returns the text of the first markdown heading in content,
// or "" when the body has none.
func ExtractTitle(content string) string {
	src := []byte(content)
	doc := mdParser.Parse(text.NewReader(src))

	title := ""
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if _, ok := n.(*ast.Heading); ok {
			title = strings.TrimSpace(nodeText(n, src))
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return title
}

// ExtractTags returns the sorted, deduplicated, lowercase set of #hashtags
// in content. Hashes inside code spans, code blocks, and raw HTML do not
// count, and neither does the reserved conflict tag.
func ExtractTags(content string) []string {
	src := []byte(content)
	doc := mdParser.Parse(text.NewReader(src))

	seen := make(map[string]bool)
	tags := []string{}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindCodeSpan, ast.KindCodeBlock, ast.KindFencedCodeBlock, ast.KindHTMLBlock, ast.KindRawHTML:
			return ast.WalkSkipChildren, nil
		}
		t, ok := n.(*ast.Text)
		if !ok {
			return ast.WalkContinue, nil
		}
		seg := t.Segment.Value(src)
		for _, m := range hashtagPattern.FindAllSubmatchIndex(seg, -1) {
			// The hash must start a word: reject a#b and ##tag runs by
			// checking the byte before the match in the original source.
			abs := t.Segment.Start + m[0]
			if abs > 0 {
				prev := src[abs-1]
				if isWordByte(prev) || prev == '#' {
					continue
				}
			}
			tag := strings.ToLower(string(seg[m[2]:m[3]]))
			if tag == TagConflict {
				continue
			}
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
		return ast.WalkContinue, nil
	})
	sort.Strings(tags)
	return tags
}

// ExtractImages returns the deduplicated bare-filename image references in
// content, in document order. Destinations with a path or scheme belong to
// the wider web and are skipped.
func ExtractImages(content string) []string {
	src := []byte(content)
	doc := mdParser.Parse(text.NewReader(src))

	seen := make(map[string]bool)
	var images []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		img, ok := n.(*ast.Image)
		if !ok {
			return ast.WalkContinue, nil
		}
		dest := string(img.Destination)
		if dest == "" || strings.ContainsAny(dest, "/:") {
			return ast.WalkContinue, nil
		}
		if !seen[dest] {
			seen[dest] = true
			images = append(images, dest)
		}
		return ast.WalkContinue, nil
	})
	return images
}

// NormalizeTags lowercases, trims, and deduplicates tags while preserving
// first-seen order. Empty entries are dropped.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// nodeText collects the plain text beneath n, crossing inline markup.
func nodeText(n ast.Node, src []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
		case *ast.String:
			sb.Write(t.Value)
		default:
			sb.WriteString(nodeText(c, src))
		}
	}
	return sb.String()
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
