package objectkey_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voyagekit/tourimport/pkg/tourimport/objectkey"
)

func TestTourPathGenerator(t *testing.T) {
	gen := objectkey.NewTourPathGenerator()

	tests := []struct {
		name string
		meta *objectkey.KeyMetadata
		want string
	}{
		{
			name: "full metadata",
			meta: &objectkey.KeyMetadata{Destination: "kanchanaburi", Slug: "erawan-falls", Role: "hero", Ext: "jpg"},
			want: "tours/kanchanaburi/erawan-falls/hero.jpg",
		},
		{
			name: "missing destination falls back",
			meta: &objectkey.KeyMetadata{Slug: "erawan-falls", Role: "card", Ext: "png"},
			want: "tours/general/erawan-falls/card.png",
		},
		{
			name: "unsafe characters sanitized",
			meta: &objectkey.KeyMetadata{Destination: "Koh Samui", Slug: "beach/day", Role: "hero", Ext: ".JPG"},
			want: "tours/koh_samui/beach_day/hero.jpg",
		},
		{
			name: "nil metadata",
			meta: nil,
			want: "tours/general/untitled/image.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gen.GenerateKey(tt.meta))
		})
	}
}

func TestTourPathGeneratorGalleryKeysDifferPerAsset(t *testing.T) {
	gen := objectkey.NewTourPathGenerator()

	first := gen.GenerateKey(&objectkey.KeyMetadata{
		Destination: "krabi", Slug: "phi-phi", Role: "gallery",
		Checksum: "aaaa1111bbbb2222cccc", Ext: "jpg",
	})
	second := gen.GenerateKey(&objectkey.KeyMetadata{
		Destination: "krabi", Slug: "phi-phi", Role: "gallery",
		Checksum: "dddd3333eeee4444ffff", Ext: "jpg",
	})

	assert.Equal(t, "tours/krabi/phi-phi/gallery-aaaa1111bbbb.jpg", first)
	assert.Equal(t, "tours/krabi/phi-phi/gallery-dddd3333eeee.jpg", second)
	assert.NotEqual(t, first, second)
}

func TestTourPathGeneratorSingletonRolesIgnoreChecksum(t *testing.T) {
	gen := objectkey.NewTourPathGenerator()

	// Hero and card overwrite in place on re-import regardless of bytes.
	for _, role := range []string{"hero", "card", "thumbnail"} {
		a := gen.GenerateKey(&objectkey.KeyMetadata{Slug: "phi-phi", Role: role, Checksum: "aaaa1111", Ext: "jpg"})
		b := gen.GenerateKey(&objectkey.KeyMetadata{Slug: "phi-phi", Role: role, Checksum: "bbbb2222", Ext: "jpg"})
		assert.Equal(t, a, b, "role %s", role)
	}
}

func TestTourPathGeneratorIsDeterministic(t *testing.T) {
	gen := objectkey.NewTourPathGenerator()
	meta := &objectkey.KeyMetadata{Destination: "bangkok", Slug: "city-tour", Role: "gallery", Ext: "jpg"}

	assert.Equal(t, gen.GenerateKey(meta), gen.GenerateKey(meta))
}

func TestTourPathGeneratorPrefix(t *testing.T) {
	gen := &objectkey.TourPathGenerator{Prefix: "media"}
	key := gen.GenerateKey(&objectkey.KeyMetadata{Destination: "bangkok", Slug: "city-tour", Role: "hero", Ext: "jpg"})
	assert.Equal(t, "media/bangkok/city-tour/hero.jpg", key)
}

func TestChecksumShardGenerator(t *testing.T) {
	gen := objectkey.NewChecksumShardGenerator()
	checksum := "abcdef0123456789deadbeef"

	key := gen.GenerateKey(&objectkey.KeyMetadata{Checksum: checksum, Ext: "webp"})
	assert.Equal(t, "images/ab/abcdef0123456789.webp", key)
}

func TestChecksumShardGeneratorEmptyChecksum(t *testing.T) {
	gen := objectkey.NewChecksumShardGenerator()
	key := gen.GenerateKey(&objectkey.KeyMetadata{})
	assert.Equal(t, "images/00/0000000000000000.jpg", key)
}
