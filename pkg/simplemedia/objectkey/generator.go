package objectkey

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Generator defines the interface for storage key generation strategies.
//
// Keys are generated fresh per upload and are never reused: the random object
// id baked into every key is what makes an upload credential single-use.
type Generator interface {
	// OriginalKey creates a never-before-used key for an original upload.
	OriginalKey(category, fileName string) string
}

// GitLikeGenerator produces Git-style sharded keys grouped by category.
// Original: media/{category}/ab/cd1234ef5678_filename
type GitLikeGenerator struct {
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
}

func NewGitLikeGenerator() *GitLikeGenerator {
	return &GitLikeGenerator{ShardLength: 2}
}

func (g *GitLikeGenerator) OriginalKey(category, fileName string) string {
	idStr := strings.ReplaceAll(uuid.New().String(), "-", "")

	shardLen := g.ShardLength
	if shardLen <= 0 || shardLen >= len(idStr) {
		shardLen = 2
	}
	shardDir := idStr[:shardLen]
	remaining := idStr[shardLen:]

	filename := remaining
	if fileName != "" {
		filename = fmt.Sprintf("%s_%s", remaining, sanitizeFilename(fileName))
	}

	cat := sanitizePathComponent(category)
	if cat == "" {
		cat = "media"
	}

	return fmt.Sprintf("media/%s/%s/%s", cat, shardDir, filename)
}

// VariantKey derives the deterministic key for a named variant of an original.
// The variant name is inserted before the file extension when one exists:
// media/logo/ab/cd12_in.jpg -> media/logo/ab/cd12_in_small.jpg
func VariantKey(originalKey, variant string) string {
	v := sanitizePathComponent(variant)
	ext := path.Ext(originalKey)
	if ext == "" {
		return fmt.Sprintf("%s_%s", originalKey, v)
	}
	base := strings.TrimSuffix(originalKey, ext)
	return fmt.Sprintf("%s_%s%s", base, v, ext)
}

func sanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return replacer.Replace(filename)
}

func sanitizePathComponent(component string) string {
	return strings.ToLower(sanitizeFilename(component))
}
