// Copyright © 2015-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

// texture.go implements the texture half of §4.3's Buffer/Texture/
// Framebuffer component: a 2D image resource with an explicit pixel
// format, wrap mode, and mip policy, decoded with golang.org/x/image
// (matching the teacher's own texture pipeline) and validated against
// the invalid_texture_size boundary. Grounded in the teacher's
// texture.go (image.Image plus a repeat flag and bound/loaded state).

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// WrapMode controls UV sampling outside the [0,1] range.
type WrapMode int

const (
	WrapClamp WrapMode = iota
	WrapRepeat
)

// PixelFormat names the GPU-side storage format a decoded image is
// uploaded as.
type PixelFormat int

const (
	FormatPixelRGBA8 PixelFormat = iota
	FormatRGB8
	FormatR8
)

// MaxTextureDim bounds a single texture dimension; larger requests fail
// with KindInvalidTextureSize (the spec's invalid_texture_size case).
const MaxTextureDim = 8192

// Texture is a 2D image resource (§4.3).
type Texture struct {
	RefObject
	name   string
	img    image.Image
	wrap   WrapMode
	format PixelFormat
	mipped bool
	bound  bool // false once pixel data changes and needs a GPU re-upload.
}

// TextureOptions constructs a Texture from decoded pixels already in
// memory, a raw pixel buffer, or an encoded blob (PNG/BMP/TIFF).
type TextureOptions struct {
	Name   string
	Image  image.Image // pre-decoded, takes priority over Blob.
	Blob   []byte      // encoded image bytes, decoded here.
	Wrap   WrapMode
	Format PixelFormat
	Mipmap bool
}

// NewTexture decodes/validates opts and returns a Texture at refcount 1.
func NewTexture(opts TextureOptions) (*Texture, error) {
	if opts.Name == "" {
		return nil, newErr("texture.New", KindInvalidArguments, fmt.Errorf("missing name"))
	}
	img := opts.Image
	if img == nil && len(opts.Blob) > 0 {
		decoded, _, err := image.Decode(bytes.NewReader(opts.Blob))
		if err != nil {
			return nil, newErr("texture.New", KindParseFailed, err)
		}
		img = decoded
	}
	if img == nil {
		return nil, newErr("texture.New", KindInvalidArguments, fmt.Errorf("no image data"))
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 || b.Dx() > MaxTextureDim || b.Dy() > MaxTextureDim {
		return nil, newErr("texture.New", KindInvalidTextureSize, fmt.Errorf("%dx%d exceeds max dimension %d", b.Dx(), b.Dy(), MaxTextureDim))
	}
	t := &Texture{name: opts.Name, img: img, wrap: opts.Wrap, format: opts.Format, mipped: opts.Mipmap}
	t.RefObject = newRefObject("texture", func() {})
	return t, nil
}

func (t *Texture) Name() string        { return t.name }
func (t *Texture) Image() image.Image  { return t.img }
func (t *Texture) Wrap() WrapMode      { return t.wrap }
func (t *Texture) Format() PixelFormat { return t.format }
func (t *Texture) Mipmapped() bool     { return t.mipped }
func (t *Texture) Bound() bool         { return t.bound }

// MarkBound is called by the render backend once pixel data has been
// uploaded to the GPU.
func (t *Texture) MarkBound() { t.bound = true }

// SetImage replaces the pixel data, re-validating size and marking the
// texture unbound so the next frame re-uploads it.
func (t *Texture) SetImage(img image.Image) error {
	if img == nil {
		return newErr("texture.SetImage", KindInvalidArguments, fmt.Errorf("nil image"))
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 || b.Dx() > MaxTextureDim || b.Dy() > MaxTextureDim {
		return newErr("texture.SetImage", KindInvalidTextureSize, fmt.Errorf("%dx%d exceeds max dimension %d", b.Dx(), b.Dy(), MaxTextureDim))
	}
	t.img = img
	t.bound = false
	return nil
}
