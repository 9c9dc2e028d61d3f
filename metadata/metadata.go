package metadata

import (
	"context"
	"errors"
	"io"
	"strings"
)

// IPFSScheme prefixes every content reference produced by this package.
const IPFSScheme = "ipfs://"

var (
	// ErrEmptyCollection is returned when a directory holds no images.
	ErrEmptyCollection = errors.New("metadata: collection has no images")
	// ErrNotPinned is returned by MemoryPinner.Get for unknown content ids.
	ErrNotPinned = errors.New("metadata: content not pinned")
)

// Attribute is one trait of a token as rendered by marketplaces.
type Attribute struct {
	TraitType string `json:"trait_type" yaml:"trait_type"`
	Value     any    `json:"value" yaml:"value"`
}

// Token is the JSON document a token URI resolves to.
type Token struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// Pinner stores content on IPFS and returns its content id.
type Pinner interface {
	PinFile(ctx context.Context, name string, r io.Reader) (string, error)
	PinJSON(ctx context.Context, name string, v any) (string, error)
}

// URI renders a content id as an ipfs:// reference.
func URI(cid string) string {
	return IPFSScheme + strings.TrimPrefix(strings.TrimSpace(cid), IPFSScheme)
}
