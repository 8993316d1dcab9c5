package epub

import (
	"strings"
	"time"
)

// CoverImage holds the detected cover image data.
type CoverImage struct {
	Path      string
	MediaType string
	Data      []byte
}

// DefaultCoverTimeout bounds cover extraction during import. Extraction that
// runs past it degrades to "no cover" rather than blocking the import.
const DefaultCoverTimeout = 1500 * time.Millisecond

// ExtractCover detects the cover image in an ePub archive, bounded by the
// given timeout (0 selects DefaultCoverTimeout). Returns ErrNoCover when no
// strategy succeeds or the deadline passes.
func ExtractCover(data []byte, timeout time.Duration) (CoverImage, error) {
	if timeout <= 0 {
		timeout = DefaultCoverTimeout
	}

	type result struct {
		cover CoverImage
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		cover, err := extractCover(data)
		ch <- result{cover, err}
	}()

	select {
	case r := <-ch:
		return r.cover, r.err
	case <-time.After(timeout):
		return CoverImage{}, ErrNoCover
	}
}

// extractCover tries the detection strategies in priority order:
//  1. ePub 3 manifest item with properties="cover-image"
//  2. ePub 2 <meta name="cover" content="ID"/> manifest lookup
//  3. manifest item whose ID or href contains "cover" with an image media type
func extractCover(data []byte) (CoverImage, error) {
	a, err := openArchive(data)
	if err != nil {
		return CoverImage{}, err
	}

	if item, ok := a.coverFromProperties(); ok {
		return a.loadCover(item)
	}
	if item, ok := a.coverFromMeta(); ok {
		return a.loadCover(item)
	}
	if item, ok := a.coverFromHeuristic(); ok {
		return a.loadCover(item)
	}
	return CoverImage{}, ErrNoCover
}

func (a *archive) coverFromProperties() (manifestItem, bool) {
	for _, item := range a.opf.Manifest.Items {
		for _, prop := range strings.Fields(item.Properties) {
			if prop == "cover-image" {
				return item, true
			}
		}
	}
	return manifestItem{}, false
}

func (a *archive) coverFromMeta() (manifestItem, bool) {
	for _, m := range a.opf.Metadata.Metas {
		if strings.EqualFold(m.Name, "cover") && m.Content != "" {
			if item, ok := a.byID[m.Content]; ok && isImageMediaType(item.MediaType) {
				return item, true
			}
		}
	}
	return manifestItem{}, false
}

func (a *archive) coverFromHeuristic() (manifestItem, bool) {
	for _, item := range a.opf.Manifest.Items {
		if !isImageMediaType(item.MediaType) {
			continue
		}
		if strings.Contains(strings.ToLower(item.ID), "cover") ||
			strings.Contains(strings.ToLower(item.Href), "cover") {
			return item, true
		}
	}
	return manifestItem{}, false
}

func (a *archive) loadCover(item manifestItem) (CoverImage, error) {
	p := a.resolve(item.Href)
	data, err := a.readFile(p)
	if err != nil {
		return CoverImage{}, ErrNoCover
	}
	return CoverImage{Path: p, MediaType: item.MediaType, Data: data}, nil
}

func isImageMediaType(mt string) bool {
	return strings.HasPrefix(strings.ToLower(mt), "image/")
}
