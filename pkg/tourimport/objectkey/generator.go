// Package objectkey builds deterministic destination paths for uploaded
// assets, so re-running an import replaces stale objects at a stable
// address instead of accumulating duplicates.
package objectkey

import (
	"fmt"
	"strings"
)

// Generator defines the interface for object key generation strategies.
type Generator interface {
	// GenerateKey creates an object key for storage backends.
	GenerateKey(meta *KeyMetadata) string
}

// KeyMetadata contains information that influences key generation.
type KeyMetadata struct {
	// Destination is the tour's destination grouping ("kanchanaburi").
	Destination string
	// Slug is the owning page slug.
	Slug string
	// Role is the asset role ("hero", "gallery", "card", "thumbnail").
	Role string
	// Checksum is the content hash, used by checksum-sharded layouts.
	Checksum string
	// Ext is the encoded file extension without dot ("jpg").
	Ext string
}

// TourPathGenerator produces human-readable tour asset paths:
// tours/{destination}/{slug}/{role}.{ext}. Singleton roles (hero, card,
// thumbnail) map the same tour and role to the same key, so re-imports
// overwrite in place. Gallery assets repeat per page, so their filename
// carries a checksum fragment and each asset keeps its own address.
type TourPathGenerator struct {
	// Prefix replaces the leading "tours" segment when non-empty.
	Prefix string
}

func NewTourPathGenerator() *TourPathGenerator {
	return &TourPathGenerator{}
}

func (g *TourPathGenerator) GenerateKey(meta *KeyMetadata) string {
	prefix := g.Prefix
	if prefix == "" {
		prefix = "tours"
	}

	destination := "general"
	if meta != nil && meta.Destination != "" {
		destination = sanitizePathComponent(meta.Destination)
	}

	slug := "untitled"
	if meta != nil && meta.Slug != "" {
		slug = sanitizePathComponent(meta.Slug)
	}

	role := "image"
	if meta != nil && meta.Role != "" {
		role = sanitizePathComponent(meta.Role)
	}

	ext := "jpg"
	if meta != nil && meta.Ext != "" {
		ext = strings.TrimPrefix(strings.ToLower(meta.Ext), ".")
	}

	name := role
	if role == "gallery" && meta != nil && meta.Checksum != "" {
		frag := meta.Checksum
		if len(frag) > 12 {
			frag = frag[:12]
		}
		name = role + "-" + frag
	}

	return fmt.Sprintf("%s/%s/%s/%s.%s", prefix, destination, slug, name, ext)
}

// ChecksumShardGenerator produces content-addressed paths sharded by the
// leading checksum characters: images/ab/abcdef0123456789.{ext}. Useful
// for assets with no owning tour yet.
type ChecksumShardGenerator struct {
	// ShardLength controls how many characters to use for sharding (default: 2).
	ShardLength int
}

func NewChecksumShardGenerator() *ChecksumShardGenerator {
	return &ChecksumShardGenerator{ShardLength: 2}
}

func (g *ChecksumShardGenerator) GenerateKey(meta *KeyMetadata) string {
	checksum := ""
	if meta != nil {
		checksum = meta.Checksum
	}
	if checksum == "" {
		checksum = "0000000000000000"
	}

	shardLen := g.ShardLength
	if shardLen <= 0 || shardLen >= len(checksum) {
		shardLen = 2
	}

	name := checksum
	if len(name) > 16 {
		name = name[:16]
	}

	ext := "jpg"
	if meta != nil && meta.Ext != "" {
		ext = strings.TrimPrefix(strings.ToLower(meta.Ext), ".")
	}

	return fmt.Sprintf("images/%s/%s.%s", checksum[:shardLen], name, ext)
}

func sanitizePathComponent(component string) string {
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
	return strings.ToLower(replacer.Replace(component))
}
