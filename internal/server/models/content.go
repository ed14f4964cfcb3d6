package models

import "time"

// Media kinds a content item can carry.
const (
	MediaImage = "image"
	MediaAudio = "audio"
	MediaVideo = "video"
)

// Content is a learning item. Image, Audio and Video hold object-storage
// keys, empty when the item has no media of that kind.
type Content struct {
	ID          int64
	Title       string
	Topic       string
	Description string
	Image       string
	Audio       string
	Video       string
	CreatedBy   string
	CreatedAt   time.Time
}

// MediaKeys returns the non-empty storage keys of c.
func (c *Content) MediaKeys() []string {
	var keys []string
	for _, k := range []string{c.Image, c.Audio, c.Video} {
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
