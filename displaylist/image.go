package displaylist

import (
	"errors"
	"fmt"
	"image"
	"sync"
)

// ErrImageNotFound is returned by an ImageSource for an unknown handle.
var ErrImageNotFound = errors.New("displaylist: image not found")

// ImageSource resolves image handles to decoded images. Implementations
// must be safe for concurrent use; every paint worker reads from the same
// source.
type ImageSource interface {
	Image(h ImageHandle) (image.Image, error)
}

// ImageMap is an ImageSource backed by a map. Images may be added while
// paints are running.
type ImageMap struct {
	mu     sync.RWMutex
	images map[ImageHandle]image.Image
}

// NewImageMap returns an empty map.
func NewImageMap() *ImageMap {
	return &ImageMap{images: make(map[ImageHandle]image.Image)}
}

// Set registers img under h, replacing any previous image.
func (m *ImageMap) Set(h ImageHandle, img image.Image) {
	m.mu.Lock()
	m.images[h] = img
	m.mu.Unlock()
}

// Delete removes h.
func (m *ImageMap) Delete(h ImageHandle) {
	m.mu.Lock()
	delete(m.images, h)
	m.mu.Unlock()
}

// Image implements ImageSource.
func (m *ImageMap) Image(h ImageHandle) (image.Image, error) {
	m.mu.RLock()
	img, ok := m.images[h]
	m.mu.RUnlock()
	if !ok || img == nil {
		return nil, fmt.Errorf("%w: handle %d", ErrImageNotFound, h)
	}
	return img, nil
}
