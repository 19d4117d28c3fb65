package animago

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// DefaultVideoMIME is used when the payload type cannot be sniffed
const DefaultVideoMIME = "video/mp4"

const (
	dataPrefix   = "data:"
	base64Marker = ";base64,"
)

// EncodeDataURL turns a video payload into a self-contained data URL
func EncodeDataURL(data []byte) string {
	mime := DefaultVideoMIME
	if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "video/") {
		mime = sniffed
	}

	var b strings.Builder
	b.Grow(len(dataPrefix) + len(mime) + len(base64Marker) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString(dataPrefix)
	b.WriteString(mime)
	b.WriteString(base64Marker)
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// DecodeDataURL reverses EncodeDataURL
func DecodeDataURL(ref string) (mime string, data []byte, err error) {
	if !strings.HasPrefix(ref, dataPrefix) {
		return "", nil, errors.New("not a data URL")
	}
	rest := ref[len(dataPrefix):]
	idx := strings.Index(rest, base64Marker)
	if idx < 0 {
		return "", nil, errors.New("data URL is not base64 encoded")
	}

	data, err = base64.StdEncoding.DecodeString(rest[idx+len(base64Marker):])
	if err != nil {
		return "", nil, errors.Wrap(err, "decode data URL payload")
	}
	return rest[:idx], data, nil
}
