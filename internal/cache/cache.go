package cache

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/zeebo/xxh3"
)

// Image holds the last successfully fetched image bytes of one entity.
// Entries are replaced wholly; readers never see a partial update.
type Image struct {
	entry atomic.Pointer[imageEntry]
}

type imageEntry struct {
	data      []byte
	digest    uint64
	updatedAt time.Time
}

// Frame is one cached image together with the entity tag of its bytes.
type Frame struct {
	Data []byte
	ETag string
}

func NewImage() *Image {
	return &Image{}
}

// Set stores a copy of data as the last known good image and returns it
// as a frame.
func (c *Image) Set(data []byte) Frame {
	buf := make([]byte, len(data))
	copy(buf, data)
	e := &imageEntry{
		data:      buf,
		digest:    xxh3.Hash(buf),
		updatedAt: time.Now(),
	}
	c.entry.Store(e)
	return e.frame()
}

// Get returns the cached frame, or false if nothing was stored yet.
func (c *Image) Get() (Frame, bool) {
	e := c.entry.Load()
	if e == nil {
		return Frame{}, false
	}
	return e.frame(), true
}

// UpdatedAt returns the last time the cache was updated.
func (c *Image) UpdatedAt() time.Time {
	if e := c.entry.Load(); e != nil {
		return e.updatedAt
	}
	return time.Time{}
}

// frame pairs the bytes with a strong entity tag derived from their hash.
func (e *imageEntry) frame() Frame {
	return Frame{
		Data: e.data,
		ETag: `"` + strconv.FormatUint(e.digest, 16) + `"`,
	}
}
