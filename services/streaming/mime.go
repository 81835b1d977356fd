package streaming

import (
	"log"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

// containerMIMETypes maps container extensions to the Content-Type served
// for direct passthrough.
var containerMIMETypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".avi":  "video/avi",
	".mpg":  "video/mpeg",
	".mpeg": "video/mpeg",
	".ts":   "video/MP2T",
	".m2ts": "video/MP2T",
	".mov":  "video/quicktime",
	".ogv":  "video/ogg",
}

const fallbackMIMEType = "application/octet-stream"

// ContainerMIME resolves the Content-Type for a source file. Known container
// extensions use the static table; anything else is sniffed from the file
// header, falling back to a generic binary type.
func ContainerMIME(fs afero.Fs, path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := containerMIMETypes[ext]; ok {
		return mime
	}

	f, err := fs.Open(path)
	if err != nil {
		return fallbackMIMEType
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		log.Printf("[mime] sniff failed for %q: %v", path, err)
		return fallbackMIMEType
	}
	return mt.String()
}
