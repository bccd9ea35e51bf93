// Package blob implements the canonical textual encoding for binary column
// values. Binary data cannot travel through JSON layers as raw bytes, so
// every driver, in-process or plugin, converts BLOB cells to this wire
// format on read and decodes it back to raw bytes on write:
//
//	BLOB:<total_size>:<mime_type>:<base64>          (preview or full)
//	BLOB_FILE_REF:<size>:<mime_type>:<file_path>    (oversized, staged to disk)
//
// Plain strings that do not match either prefix pass through unmodified.
package blob

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/mosaic-db/mosaic/internal/errs"
)

// PreviewLimit is the maximum number of bytes Encode embeds as base64.
// Larger payloads are truncated to this prefix; Decode of such a value is
// lossy by design and recovers only the preview.
const PreviewLimit = 4096

const (
	prefix        = "BLOB:"
	fileRefPrefix = "BLOB_FILE_REF:"
)

// Encode converts data into the wire format, truncating the embedded base64
// payload to the first PreviewLimit bytes. The size field always reports the
// full length. Used on read paths where a preview is enough.
func Encode(data []byte) string {
	preview := data
	if len(data) > PreviewLimit {
		preview = data[:PreviewLimit]
	}
	return fmt.Sprintf("%s%d:%s:%s", prefix, len(data), sniffMIME(preview),
		base64.StdEncoding.EncodeToString(preview))
}

// EncodeFull converts data into the wire format with no truncation.
// Used on write/upload paths so payloads above PreviewLimit survive intact.
func EncodeFull(data []byte) string {
	return fmt.Sprintf("%s%d:%s:%s", prefix, len(data), sniffMIME(data),
		base64.StdEncoding.EncodeToString(data))
}

// Decode recovers the raw bytes from a wire-format string. The second return
// is false when value is a plain string that should be stored as-is; write
// paths call Decode on every string value and bind the original on false.
//
// BLOB_FILE_REF values are resolved by reading the referenced file.
func Decode(value string) ([]byte, bool) {
	if strings.HasPrefix(value, fileRefPrefix) {
		data, err := resolveFileRef(value)
		if err != nil {
			return nil, false
		}
		return data, true
	}

	rest, ok := strings.CutPrefix(value, prefix)
	if !ok {
		return nil, false
	}

	// Skip the size field, then the mime field. The mime type may contain
	// dots, plus signs and slashes but never a colon, so cutting on the
	// first colon twice lands exactly at the base64 payload.
	_, afterSize, ok := strings.Cut(rest, ":")
	if !ok {
		return nil, false
	}
	_, payload, ok := strings.Cut(afterSize, ":")
	if !ok {
		return nil, false
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, false
	}
	return data, true
}

// EncodeFileRef builds a file-reference wire value for a payload staged at
// path.
func EncodeFileRef(size int64, mimeType, path string) string {
	return fmt.Sprintf("%s%d:%s:%s", fileRefPrefix, size, mimeType, path)
}

// Stage writes data to a uniquely named file under dir and returns the
// BLOB_FILE_REF wire value pointing at it. Used when a payload is too large
// to embed in a JSON frame.
func Stage(dir string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.Wrap(errs.ErrKindInvalidInput, "cannot create blob staging directory", err)
	}
	path := filepath.Join(dir, uuid.NewString()+".blob")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", errs.Wrap(errs.ErrKindInvalidInput, "cannot stage blob to disk", err)
	}
	return EncodeFileRef(int64(len(data)), sniffMIME(data), path), nil
}

// DataURL renders data as a browser-consumable data: URL, used by the
// blob-preview driver operation.
func DataURL(data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", sniffMIME(data),
		base64.StdEncoding.EncodeToString(data))
}

// resolveFileRef reads back the bytes referenced by a BLOB_FILE_REF value.
func resolveFileRef(value string) ([]byte, error) {
	rest := strings.TrimPrefix(value, fileRefPrefix)

	// <size>:<mime>:<filepath>. The path may itself contain colons only on
	// exotic filesystems, so cut twice and keep the remainder whole.
	parts := strings.SplitN(rest, ":", 3)
	if len(parts) != 3 {
		return nil, errs.New(errs.ErrKindInvalidInput, "invalid BLOB_FILE_REF format")
	}

	data, err := os.ReadFile(parts[2])
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "cannot read staged blob file", err)
	}
	return data, nil
}

// sniffMIME detects the content type from the payload's magic bytes.
// http.DetectContentType appends charset parameters to text types; the wire
// format carries the bare type only.
func sniffMIME(data []byte) string {
	mime := http.DetectContentType(data)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return mime
}
