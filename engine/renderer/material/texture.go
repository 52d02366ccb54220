package material

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-view/common"
)

// TextureState is the residency state of a texture.
type TextureState int

const (
	// TexturePending means the external loader has not delivered pixels yet.
	TexturePending TextureState = iota
	// TextureFailed means the loader gave up; the texture will never become resident.
	TextureFailed
	// TextureDecoded means pixels are staged in memory and wait for upload.
	TextureDecoded
	// TextureResident means the texture lives on the GPU.
	TextureResident

	// textureAbsent stands for "no texture" in classification snapshots.
	textureAbsent TextureState = -1
)

func (s TextureState) String() string {
	switch s {
	case TexturePending:
		return "pending"
	case TextureFailed:
		return "failed"
	case TextureDecoded:
		return "decoded"
	case TextureResident:
		return "resident"
	default:
		return "absent"
	}
}

// TextureHandle is an opaque GPU texture handle produced by a TextureUploader.
type TextureHandle any

type texture struct {
	mu       *sync.Mutex
	name     string
	state    TextureState
	staging  *common.TextureStagingData
	handle   TextureHandle
	hasAlpha bool
	err      error
}

// Texture tracks one texture from decode to GPU residency.
// Pixel data and state transitions are fed by the external texture loader; the Classifier performs the upload.
type Texture interface {
	// Name retrieves the texture identifier.
	//
	// Returns:
	//   - string: the texture name
	Name() string

	// State retrieves the residency state.
	//
	// Returns:
	//   - TextureState: the current state
	State() TextureState

	// Staging retrieves the decoded pixels, or nil before decoding completes.
	//
	// Returns:
	//   - *common.TextureStagingData: the staged pixels or nil
	Staging() *common.TextureStagingData

	// Handle retrieves the GPU handle, or nil while not resident.
	//
	// Returns:
	//   - TextureHandle: the GPU handle or nil
	Handle() TextureHandle

	// HasAlpha reports whether any texel is translucent. Only meaningful once resident.
	//
	// Returns:
	//   - bool: true if any alpha byte is below 255
	HasAlpha() bool

	// Err retrieves the failure recorded by SetFailed.
	//
	// Returns:
	//   - error: the load failure or nil
	Err() error

	// SetDecoded stages decoded pixels and moves a pending texture to TextureDecoded.
	//
	// Parameters:
	//   - data: the decoded pixels
	//
	// Returns:
	//   - error: error if the data is malformed or the texture is not pending
	SetDecoded(data *common.TextureStagingData) error

	// SetFailed marks a pending texture as permanently failed.
	//
	// Parameters:
	//   - err: the load failure
	SetFailed(err error)

	markResident(handle TextureHandle, hasAlpha bool)
	release() TextureHandle
}

var _ Texture = &texture{}

// NewTexture creates a pending texture awaiting pixels from the loader.
//
// Parameters:
//   - name: the texture identifier
//
// Returns:
//   - Texture: the pending texture
func NewTexture(name string) Texture {
	return &texture{
		mu:    &sync.Mutex{},
		name:  name,
		state: TexturePending,
	}
}

// NewDecodedTexture creates a texture whose pixels are already decoded.
//
// Parameters:
//   - data: the decoded pixels
//
// Returns:
//   - Texture: the decoded texture
//   - error: error if the data is malformed
func NewDecodedTexture(data *common.TextureStagingData) (Texture, error) {
	if data == nil {
		return nil, errors.New("texture data is nil")
	}
	t := NewTexture(data.Name)
	if err := t.SetDecoded(data); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *texture) Name() string {
	return t.name
}

func (t *texture) State() TextureState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *texture) Staging() *common.TextureStagingData {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.staging
}

func (t *texture) Handle() TextureHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handle
}

func (t *texture) HasAlpha() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasAlpha
}

func (t *texture) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *texture) SetDecoded(data *common.TextureStagingData) error {
	if err := data.Validate(); err != nil {
		return errors.Wrapf(err, "texture %q", t.name)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TexturePending {
		return errors.Errorf("texture %q is %s, not pending", t.name, t.state)
	}
	t.staging = data
	t.state = TextureDecoded
	return nil
}

func (t *texture) SetFailed(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TexturePending {
		return
	}
	t.err = err
	t.state = TextureFailed
}

func (t *texture) markResident(handle TextureHandle, hasAlpha bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handle = handle
	t.hasAlpha = hasAlpha
	t.state = TextureResident
}

// release drops the GPU handle and returns the texture to TextureDecoded so it can be uploaded again.
func (t *texture) release() TextureHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.handle
	t.handle = nil
	if t.state == TextureResident {
		t.state = TextureDecoded
	}
	return h
}
