package media

import "strings"

const (
	// MaxFileSize is the upload ceiling: 10 MiB
	MaxFileSize = 10 << 20

	// DefaultFileName replaces empty display names
	DefaultFileName = "memechain-upload"

	// PlaceholderImage is shown for entries without a content locator
	PlaceholderImage = "/placeholder.svg"

	locatorScheme = "ipfs://"
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// File is an upload candidate
type File struct {
	Name        string
	ContentType string // declared by the client; may be empty
	Data        []byte
}

// Size returns the file size in bytes
func (f File) Size() int64 {
	return int64(len(f.Data))
}

// DisplayName returns the trimmed name, or DefaultFileName when it is blank
func (f File) DisplayName() string {
	if name := strings.TrimSpace(f.Name); name != "" {
		return f.Name
	}
	return DefaultFileName
}

// Stored is a pinned file
type Stored struct {
	CID     string `json:"cid"`
	Locator string `json:"ipfsUri"`
	URL     string `json:"gatewayUrl"`
}

// IsAllowedType reports whether a MIME type is on the allow-list
func IsAllowedType(contentType string) bool {
	base, _, _ := strings.Cut(contentType, ";")
	return allowedTypes[strings.ToLower(strings.TrimSpace(base))]
}

// Locator returns the ipfs:// locator for a CID
func Locator(cid string) string {
	return locatorScheme + cid
}

// GatewayURL derives a retrievable URL for cid under gateway
func GatewayURL(gateway, cid string) string {
	return strings.TrimRight(gateway, "/") + "/ipfs/" + cid
}

// ImageURL turns a stored locator (ipfs://<cid> or a bare CID) into a gateway URL
func ImageURL(gateway, locator string) string {
	if locator == "" {
		return PlaceholderImage
	}
	return GatewayURL(gateway, strings.TrimPrefix(locator, locatorScheme))
}
