package media

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"
)

// Store validates uploads and pins them
type Store struct {
	pinner  Pinner
	gateway string
	logger  *slog.Logger
}

// NewStore creates a media store that derives URLs under gateway
func NewStore(pinner Pinner, gateway string, logger *slog.Logger) *Store {
	return &Store{
		pinner:  pinner,
		gateway: gateway,
		logger:  logger.With("component", "media"),
	}
}

// Validate applies the type allow-list and size ceiling. The content type is sniffed from
// the bytes; a declared type, when present, must also be allowed.
func (s *Store) Validate(f File) error {
	return Validate(f)
}

// Validate is the stateless form of Store.Validate, shared with the upload endpoint
func Validate(f File) error {
	if f.Size() == 0 {
		return ErrEmptyFile
	}

	if f.ContentType != "" && !IsAllowedType(f.ContentType) {
		return &ValidationError{Reason: ReasonUnsupportedType, ContentType: f.ContentType, Size: f.Size()}
	}

	sniffed := mimetype.Detect(f.Data).String()
	if !IsAllowedType(sniffed) {
		return &ValidationError{Reason: ReasonUnsupportedType, ContentType: sniffed, Size: f.Size()}
	}

	if f.Size() > MaxFileSize {
		return &ValidationError{Reason: ReasonTooLarge, ContentType: sniffed, Size: f.Size()}
	}

	return nil
}

// Store validates f, pins it and returns its locator and gateway URL
func (s *Store) Store(ctx context.Context, f File) (*Stored, error) {
	if err := Validate(f); err != nil {
		return nil, err
	}

	contentType := f.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(f.Data).String()
	}

	name := f.DisplayName()
	cid, err := s.pinner.Pin(ctx, name, contentType, f.Data)
	if err != nil {
		s.logger.Error("pinning failed", "name", name, "size", f.Size(), "error", err)
		return nil, fmt.Errorf("failed to pin file: %w", err)
	}

	s.logger.Info("file pinned", "name", name, "cid", cid, "size", f.Size())

	return &Stored{
		CID:     cid,
		Locator: Locator(cid),
		URL:     GatewayURL(s.gateway, cid),
	}, nil
}
