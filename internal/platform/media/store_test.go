package media_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/memechain/internal/platform/media"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	jpegHeader = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	gifHeader  = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00")
	webpHeader = []byte("RIFF\x24\x00\x00\x00WEBPVP8 \x18\x00\x00\x00")
)

type MockPinner struct {
	mock.Mock
}

func (m *MockPinner) Pin(ctx context.Context, name, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, name, contentType, data)
	return args.String(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValidate_AllowedTypes(t *testing.T) {
	for name, data := range map[string][]byte{"png": pngHeader, "jpeg": jpegHeader, "gif": gifHeader, "webp": webpHeader} {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, media.Validate(media.File{Name: "meme", Data: data}))
		})
	}
}

func TestValidate_UnsupportedType(t *testing.T) {
	err := media.Validate(media.File{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hello")})

	ve, ok := media.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, media.ReasonUnsupportedType, ve.Reason)
	assert.Equal(t, "text/plain", ve.ContentType)
}

func TestValidate_DeclaredTypeMustMatchBytes(t *testing.T) {
	err := media.Validate(media.File{Name: "fake.png", ContentType: "image/png", Data: []byte("%PDF-1.7 not an image")})

	ve, ok := media.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, media.ReasonUnsupportedType, ve.Reason)
}

func TestValidate_TooLarge(t *testing.T) {
	data := append(bytes.Clone(pngHeader), make([]byte, media.MaxFileSize)...)
	err := media.Validate(media.File{Name: "big.png", ContentType: "image/png", Data: data})

	ve, ok := media.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, media.ReasonTooLarge, ve.Reason)
	assert.Equal(t, int64(len(data)), ve.Size)
}

func TestValidate_ExactlyAtLimit(t *testing.T) {
	data := append(bytes.Clone(pngHeader), make([]byte, media.MaxFileSize-len(pngHeader))...)
	assert.NoError(t, media.Validate(media.File{Data: data}))
}

func TestValidate_Empty(t *testing.T) {
	assert.ErrorIs(t, media.Validate(media.File{Name: "empty.png"}), media.ErrEmptyFile)
}

func TestStore_Success(t *testing.T) {
	ctx := context.Background()
	pinner := new(MockPinner)
	pinner.On("Pin", ctx, "cat.png", "image/png", pngHeader).Return("bafycat", nil)

	store := media.NewStore(pinner, "https://gateway.example/", testLogger())
	stored, err := store.Store(ctx, media.File{Name: "cat.png", ContentType: "image/png", Data: pngHeader})

	require.NoError(t, err)
	assert.Equal(t, "bafycat", stored.CID)
	assert.Equal(t, "ipfs://bafycat", stored.Locator)
	assert.Equal(t, "https://gateway.example/ipfs/bafycat", stored.URL)
	pinner.AssertExpectations(t)
}

func TestStore_DefaultsNameAndSniffsType(t *testing.T) {
	ctx := context.Background()
	pinner := new(MockPinner)
	pinner.On("Pin", ctx, media.DefaultFileName, "image/gif", gifHeader).Return("bafygif", nil)

	store := media.NewStore(pinner, "https://gateway.example", testLogger())
	_, err := store.Store(ctx, media.File{Name: "   ", Data: gifHeader})

	require.NoError(t, err)
	pinner.AssertExpectations(t)
}

func TestStore_RejectsBeforePinning(t *testing.T) {
	pinner := new(MockPinner)
	store := media.NewStore(pinner, "https://gateway.example", testLogger())

	_, err := store.Store(context.Background(), media.File{Name: "a.txt", Data: []byte("plain text")})

	_, ok := media.AsValidationError(err)
	assert.True(t, ok)
	pinner.AssertNotCalled(t, "Pin", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStore_PinFailure(t *testing.T) {
	pinner := new(MockPinner)
	pinner.On("Pin", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("401 unauthorized"))

	store := media.NewStore(pinner, "https://gateway.example", testLogger())
	_, err := store.Store(context.Background(), media.File{Name: "a.png", Data: pngHeader})

	assert.ErrorContains(t, err, "failed to pin file")
	_, ok := media.AsValidationError(err)
	assert.False(t, ok)
}

func TestImageURL(t *testing.T) {
	assert.Equal(t, "https://ipfs.io/ipfs/bafy", media.ImageURL("https://ipfs.io", "ipfs://bafy"))
	assert.Equal(t, "https://ipfs.io/ipfs/bafy", media.ImageURL("https://ipfs.io/", "bafy"))
	assert.Equal(t, media.PlaceholderImage, media.ImageURL("https://ipfs.io", ""))
}

func TestIsAllowedType(t *testing.T) {
	assert.True(t, media.IsAllowedType("IMAGE/PNG"))
	assert.True(t, media.IsAllowedType("image/jpeg; charset=binary"))
	assert.False(t, media.IsAllowedType("image/svg+xml"))
}
