package material

import (
	"context"
	"image"
	"math/bits"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/dispatch"
)

// alphaScanChunkPixels is the minimum number of texels one alpha scan chunk covers.
const alphaScanChunkPixels = 16384

var errTranslucentTexel = errors.New("translucent texel")

// Class is the draw-order classification of a material.
type Class int

const (
	// ClassUnclassified means a texture is still on its way; the renderer treats it as opaque.
	ClassUnclassified Class = iota
	// ClassOpaque materials are drawn first with depth writes.
	ClassOpaque
	// ClassAlpha materials are drawn last, back to front, with blending.
	ClassAlpha
)

func (c Class) String() string {
	switch c {
	case ClassOpaque:
		return "opaque"
	case ClassAlpha:
		return "alpha"
	default:
		return "unclassified"
	}
}

// TextureUploader creates and destroys GPU textures. It must only be called from the render goroutine.
type TextureUploader interface {
	// UploadTexture creates a GPU texture from a mip chain, largest level first.
	//
	// Parameters:
	//   - label: debug label for the texture
	//   - levels: the mip levels in RGBA
	//
	// Returns:
	//   - TextureHandle: the opaque GPU handle
	//   - error: error if the texture could not be created
	UploadTexture(label string, levels []*image.RGBA) (TextureHandle, error)

	// ReleaseTexture destroys a texture created by UploadTexture.
	//
	// Parameters:
	//   - handle: the handle to release
	ReleaseTexture(handle TextureHandle)
}

type classEntry struct {
	class     Class
	residency TextureState
}

type classifier struct {
	mu         *sync.Mutex
	uploader   TextureUploader
	dispatcher dispatch.Dispatcher
	mipmaps    bool
	entries    map[Material]classEntry
	uploaded   []Texture
}

// Classifier decides whether materials are drawn opaque or blended and uploads their textures.
// A classification is cached per material and recomputed only when the residency of its texture changes.
type Classifier interface {
	// IsAlphaMaterial reports whether the material needs blending: its resident diffuse texture has a
	// translucent texel or its diffuse color alpha is below 1.
	//
	// Parameters:
	//   - m: the material
	//
	// Returns:
	//   - bool: true for alpha materials
	IsAlphaMaterial(m Material) bool

	// UploadTextures uploads the material's decoded textures that are not resident yet.
	// When it returns true the cached classification of the material has been refreshed.
	//
	// Parameters:
	//   - m: the material
	//
	// Returns:
	//   - bool: true if an upload happened
	//   - error: error if preparing or uploading a texture failed; the texture stays decoded for a retry
	UploadTextures(m Material) (bool, error)

	// Classify returns the cached classification of the material, computing it on first use.
	//
	// Parameters:
	//   - m: the material, or nil for the default material
	//
	// Returns:
	//   - Class: the classification
	Classify(m Material) Class

	// Release destroys every texture this classifier uploaded. Safe to call more than once.
	Release()
}

var _ Classifier = &classifier{}

// NewClassifier creates a Classifier that uploads through the given uploader.
//
// Parameters:
//   - uploader: the GPU texture factory
//   - options: functional options to configure the classifier
//
// Returns:
//   - Classifier: the new classifier
func NewClassifier(uploader TextureUploader, options ...ClassifierBuilderOption) Classifier {
	c := &classifier{
		mu:       &sync.Mutex{},
		uploader: uploader,
		mipmaps:  true,
		entries:  make(map[Material]classEntry),
	}
	for _, option := range options {
		option(c)
	}
	if c.dispatcher == nil {
		c.dispatcher = dispatch.Default()
	}
	return c
}

func (c *classifier) IsAlphaMaterial(m Material) bool {
	if m == nil {
		return false
	}
	if m.DiffuseColor()[3] < 1 {
		return true
	}
	tex := m.DiffuseTexture()
	return tex != nil && tex.State() == TextureResident && tex.HasAlpha()
}

func (c *classifier) Classify(m Material) Class {
	if m == nil {
		return ClassOpaque
	}
	residency := residencyOf(m)

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[m]; ok && e.residency == residency {
		return e.class
	}
	class := ClassOpaque
	switch {
	case m.DiffuseColor()[3] < 1:
		class = ClassAlpha
	case residency == TexturePending || residency == TextureDecoded:
		class = ClassUnclassified
	case c.IsAlphaMaterial(m):
		class = ClassAlpha
	}
	c.entries[m] = classEntry{class: class, residency: residency}
	return class
}

func (c *classifier) UploadTextures(m Material) (bool, error) {
	if m == nil {
		return false, nil
	}
	tex := m.DiffuseTexture()
	if tex == nil || tex.State() != TextureDecoded {
		return false, nil
	}
	data := tex.Staging()

	hasAlpha, err := c.scanAlpha(data)
	if err != nil {
		return false, errors.Wrapf(err, "scan texture %q", tex.Name())
	}
	levels, err := c.buildLevels(data)
	if err != nil {
		return false, errors.Wrapf(err, "build mip chain for texture %q", tex.Name())
	}
	handle, err := c.uploader.UploadTexture(tex.Name(), levels)
	if err != nil {
		return false, errors.Wrapf(err, "upload texture %q", tex.Name())
	}
	tex.markResident(handle, hasAlpha)

	c.mu.Lock()
	c.uploaded = append(c.uploaded, tex)
	c.mu.Unlock()

	class := c.Classify(m)
	common.Logger().Debug("texture resident",
		"texture", tex.Name(),
		"material", m.Name(),
		"levels", len(levels),
		"class", class.String())
	return true, nil
}

func (c *classifier) Release() {
	c.mu.Lock()
	uploaded := c.uploaded
	c.uploaded = nil
	c.entries = make(map[Material]classEntry)
	c.mu.Unlock()

	for _, tex := range uploaded {
		if h := tex.release(); h != nil {
			c.uploader.ReleaseTexture(h)
		}
	}
}

// scanAlpha looks for a texel with alpha below 255. Rows are scanned in parallel and the
// first hit cancels the chunks that have not started.
func (c *classifier) scanAlpha(t *common.TextureStagingData) (bool, error) {
	stride := int(t.Width) * 4
	rowsPerChunk := max(1, alphaScanChunkPixels/int(t.Width))
	err := c.dispatcher.Run(context.Background(), int(t.Height), rowsPerChunk, func(lo, hi int) error {
		for i := lo*stride + 3; i < hi*stride; i += 4 {
			if t.Pixels[i] < 0xff {
				return errTranslucentTexel
			}
		}
		return nil
	})
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, errTranslucentTexel):
		return true, nil
	default:
		return false, err
	}
}

// buildLevels produces the mip chain. Every level is resampled from the base image, so
// levels are independent and built in parallel.
func (c *classifier) buildLevels(t *common.TextureStagingData) ([]*image.RGBA, error) {
	base := t.Image()
	count := 1
	if c.mipmaps {
		count = bits.Len32(max(t.Width, t.Height))
	}
	levels := make([]*image.RGBA, count)
	levels[0] = base
	err := c.dispatcher.ForEach(context.Background(), count-1, 1, func(i int) error {
		level := i + 1
		w := max(int(t.Width)>>level, 1)
		h := max(int(t.Height)>>level, 1)
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), base, base.Bounds(), draw.Src, nil)
		levels[level] = dst
		return nil
	})
	if err != nil {
		return nil, err
	}
	return levels, nil
}

func residencyOf(m Material) TextureState {
	tex := m.DiffuseTexture()
	if tex == nil {
		return textureAbsent
	}
	return tex.State()
}
