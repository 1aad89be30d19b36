package games

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	mathrand "math/rand/v2"
	"mime"
	"path"
	"strings"
	"weak"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"
)

// Character is one immutable board asset: decoded image bytes plus the
// media type they were served under. Two characters with identical bytes
// and media type are interchangeable, which is what the cache dedups on.
type Character struct {
	mediaType string
	data      []byte
}

func (c *Character) MediaType() string {
	return c.mediaType
}

func (c *Character) Data() []byte {
	return c.data
}

// Size is the asset's contribution to the cache ceiling: payload length
// plus the stored media type tag.
func (c *Character) Size() int {
	return len(c.mediaType) + len(c.data)
}

func (c *Character) key() [sha256.Size]byte {
	h := sha256.New()
	h.Write([]byte(c.mediaType))
	h.Write([]byte{0})
	h.Write(c.data)
	return [sha256.Size]byte(h.Sum(nil))
}

// CharacterSet is the fixed-size ordered board, one character per cell.
// Copying a set copies references, never bytes.
type CharacterSet []*Character

// AssetCache deduplicates decoded characters across uploads. It holds
// only weak references: a character stays alive exactly as long as some
// session's board (or an in-flight load) still references it, and the
// index is swept of dead entries on every mutation rather than by a
// background goroutine.
type AssetCache struct {
	index map[[sha256.Size]byte]weak.Pointer[Character]
}

func NewAssetCache() *AssetCache {
	return &AssetCache{index: make(map[[sha256.Size]byte]weak.Pointer[Character])}
}

// Size sweeps dead entries and returns the aggregate size of all assets
// still alive.
func (c *AssetCache) Size() int {
	total := 0
	for key, ptr := range c.index {
		ch := ptr.Value()
		if ch == nil {
			delete(c.index, key)
			continue
		}
		total += ch.Size()
	}
	return total
}

// Len reports how many live entries the index holds, sweeping as it goes.
func (c *AssetCache) Len() int {
	count := 0
	for key, ptr := range c.index {
		if ptr.Value() == nil {
			delete(c.index, key)
			continue
		}
		count++
	}
	return count
}

// intern returns the cached character equal to ch if one is still alive,
// otherwise indexes ch and returns it.
func (c *AssetCache) intern(ch *Character) *Character {
	key := ch.key()
	if ptr, ok := c.index[key]; ok {
		if live := ptr.Value(); live != nil {
			return live
		}
	}
	c.index[key] = weak.Make(ch)
	return ch
}

// Load unpacks a zip archive into exactly n characters, visiting entries
// in random order so qualifying images are picked without bias toward
// alphabetically early names. Entries must resolve to an image media
// type; tiff is skipped since browsers will not render it inline. On any
// failure the partially built set is abandoned, and since the index is
// weak it keeps nothing alive.
func (c *AssetCache) Load(pack []byte, n int) (CharacterSet, error) {
	c.sweep()

	reader, err := zip.NewReader(bytes.NewReader(pack), int64(len(pack)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPack, err)
	}

	entries := lo.Filter(reader.File, func(f *zip.File, _ int) bool {
		return !f.FileInfo().IsDir()
	})

	set := make(CharacterSet, 0, n)
	for _, idx := range mathrand.Perm(len(entries)) {
		entry := entries[idx]

		mediaType := mime.TypeByExtension(strings.ToLower(path.Ext(entry.Name)))

		var data []byte
		if mediaType == "" {
			// Unknown extension: sniff the content instead.
			data, err = readEntry(entry)
			if err != nil {
				return nil, err
			}
			mediaType = mimetype.Detect(data).String()
		}

		if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
			mediaType = parsed
		}
		if !strings.HasPrefix(mediaType, "image/") || mediaType == "image/tiff" {
			continue
		}

		if data == nil {
			data, err = readEntry(entry)
			if err != nil {
				return nil, err
			}
		}

		set = append(set, c.intern(&Character{
			mediaType: mediaType,
			data:      data,
		}))
		if len(set) == n {
			return set, nil
		}
	}

	return nil, ErrTooFewImages
}

func (c *AssetCache) sweep() {
	for key, ptr := range c.index {
		if ptr.Value() == nil {
			delete(c.index, key)
		}
	}
}

func readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPack, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPack, err)
	}

	return data, nil
}
