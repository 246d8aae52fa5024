package llm

import (
	"encoding/base64"
	"mime"
	"path/filepath"
	"strings"
)

// DataURL embeds data in a data: URL, guessing the media type from name.
func DataURL(name string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	mt := mime.TypeByExtension(ext)
	if mt == "" {
		switch ext {
		case ".pdf":
			mt = "application/pdf"
		case ".jpg", ".jpeg":
			mt = "image/jpeg"
		case ".png":
			mt = "image/png"
		default:
			mt = "application/octet-stream"
		}
	}
	// drop parameters such as "; charset=utf-8"
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(data)
}
