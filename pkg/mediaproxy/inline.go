package mediaproxy

import (
	"bytes"
	"context"
	"encoding/base64"
	"regexp"
	"sort"
	"strings"
)

// Inline data URIs show up in four syntactic positions in rich-text HTML:
// plain src attributes, CSS background-image url() values, and the data-src
// and data-original attributes written by the rich-text editor's lazy-load
// plugins. Each pattern captures exactly the data URI span so the
// surrounding markup is spliced back byte-for-byte.
var inlineImagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:data-src|src)\s*=\s*["'](data:image/[a-z0-9.+-]+;base64,[^"']*)["']`),
	regexp.MustCompile(`(?i)data-original\s*=\s*["'](data:image/[a-z0-9.+-]+;base64,[^"']*)["']`),
	regexp.MustCompile(`(?i)background-image\s*:\s*url\(\s*["']?(data:image/[a-z0-9.+-]+;base64,[^"')\s]*)["']?\s*\)`),
}

// minInlineImageBytes rejects decoded payloads too small to be real images
// (editor artifacts and tracking pixels from pasted content).
const minInlineImageBytes = 10

// sectionCategories maps keywords found in caller-supplied section labels
// to media categories. First match wins; unmatched labels fall back to the
// generic content category.
var sectionCategories = []struct {
	keyword  string
	category Category
}{
	{"community", CategoryCommunity},
	{"wildlife", CategoryCommunity},
	{"calendar", CategoryCalendar},
	{"event", CategoryCalendar},
	{"forum", CategoryForum},
	{"vendor", CategoryVendor},
	{"service", CategoryVendor},
	{"real-estate", CategoryRealEstate},
	{"for-sale", CategoryRealEstate},
}

// CategoryForSection derives a media category from a free-form section
// label via the fixed keyword table.
func CategoryForSection(label string) Category {
	l := strings.ToLower(label)
	for _, entry := range sectionCategories {
		if strings.Contains(l, entry.keyword) {
			return entry.category
		}
	}
	return CategoryContent
}

// imageExtensions normalizes data URI format tokens to file extensions.
var imageExtensions = map[string]string{
	"jpeg":    "jpg",
	"svg+xml": "svg",
}

// splice is a pending replacement of html[start:end] with url.
type splice struct {
	start, end int
	url        string
}

// ExtractInlineImages scans rich-text HTML for embedded base64 images,
// stores each as a media object, and splices the canonical external URL
// back in place of the inline data. A failure on one embedded image
// (corrupt base64, implausibly small payload, store failure) leaves that
// occurrence untouched and processing continues; the rest of the document
// is never corrupted or dropped.
func (s *service) ExtractInlineImages(ctx context.Context, html string, sectionLabel string) string {
	if !strings.Contains(html, "data:image/") {
		return html
	}

	category := CategoryForSection(sectionLabel)

	var splices []splice
	for _, pattern := range inlineImagePatterns {
		for _, m := range pattern.FindAllStringSubmatchIndex(html, -1) {
			start, end := m[2], m[3]
			url, ok := s.storeInlineImage(ctx, html[start:end], category)
			if !ok {
				continue
			}
			splices = append(splices, splice{start: start, end: end, url: url})
		}
	}
	if len(splices) == 0 {
		return html
	}

	// Apply back-to-front so earlier offsets stay valid.
	sort.Slice(splices, func(i, j int) bool { return splices[i].start > splices[j].start })
	out := html
	for _, sp := range splices {
		out = out[:sp.start] + sp.url + out[sp.end:]
	}
	return out
}

// storeInlineImage decodes and stores one data URI, returning the external
// URL to splice in. Returns ok=false for anything that should leave the
// original markup untouched.
func (s *service) storeInlineImage(ctx context.Context, dataURI string, category Category) (string, bool) {
	format, payload, ok := parseImageDataURI(dataURI)
	if !ok {
		return "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		s.logger.Debug("skipping inline image with invalid base64", "error", err)
		return "", false
	}
	if len(decoded) < minInlineImageBytes {
		return "", false
	}

	ext := format
	if mapped, ok := imageExtensions[format]; ok {
		ext = mapped
	}

	ref, err := s.StoreMedia(ctx, StoreMediaRequest{
		Category: category,
		Filename: "inline." + ext,
		Reader:   bytes.NewReader(decoded),
	})
	if err != nil {
		s.logger.Warn("failed to store inline image", "category", category, "error", err)
		return "", false
	}
	return ref.ExternalURL, true
}

// parseImageDataURI splits "data:image/{format};base64,{payload}".
func parseImageDataURI(uri string) (format, payload string, ok bool) {
	rest, found := strings.CutPrefix(uri, "data:image/")
	if !found {
		return "", "", false
	}
	format, payload, found = strings.Cut(rest, ";base64,")
	if !found || format == "" || payload == "" {
		return "", "", false
	}
	return format, payload, true
}
