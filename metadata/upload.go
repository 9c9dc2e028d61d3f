package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".svg":  true,
	".webp": true,
}

// Uploaded is the result of pinning one image and its token document.
type Uploaded struct {
	File     string
	ImageURI string
	TokenURI string
	Document Token
}

// Uploader pins a directory of images as an ordered collection.
type Uploader struct {
	Pinner Pinner
	Logger *slog.Logger
}

// Upload pins every image in dir, then one token document per image. The
// result is in category order: the manifest order first, then the remaining
// images sorted by file name.
func (u *Uploader) Upload(ctx context.Context, dir string, manifest *Manifest) ([]Uploaded, error) {
	if u == nil || u.Pinner == nil {
		return nil, fmt.Errorf("metadata: pinner required")
	}
	logger := u.Logger
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("metadata: read images: %w", err)
	}
	files := make(map[string]string)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !imageExtensions[ext] {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if _, dup := files[name]; dup {
			return nil, fmt.Errorf("metadata: two images named %q", name)
		}
		files[name] = entry.Name()
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, ErrEmptyCollection
	}

	out := make([]Uploaded, 0, len(names))
	for _, name := range manifest.order(names) {
		file := files[name]
		imageCID, err := u.pinImage(ctx, filepath.Join(dir, file), file)
		if err != nil {
			return nil, err
		}
		doc := manifest.Document(name, URI(imageCID))
		docCID, err := u.Pinner.PinJSON(ctx, name+".json", doc)
		if err != nil {
			return nil, fmt.Errorf("metadata: pin document %s: %w", name, err)
		}
		logger.Info("pinned token document", "image", file, "tokenUri", URI(docCID))
		out = append(out, Uploaded{
			File:     file,
			ImageURI: doc.Image,
			TokenURI: URI(docCID),
			Document: doc,
		})
	}
	return out, nil
}

func (u *Uploader) pinImage(ctx context.Context, path, file string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("metadata: open %s: %w", file, err)
	}
	defer f.Close()
	cid, err := u.Pinner.PinFile(ctx, file, f)
	if err != nil {
		return "", fmt.Errorf("metadata: pin image %s: %w", file, err)
	}
	return cid, nil
}

// TokenURIs extracts the token URIs in category order.
func TokenURIs(uploaded []Uploaded) []string {
	out := make([]string, len(uploaded))
	for i, u := range uploaded {
		out[i] = u.TokenURI
	}
	return out
}
