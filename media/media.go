// Package media maps file names and content to media types and classifies
// media types into groups (folder placement) and kinds (resource behavior).
package media

import (
	"io"
	"os"
	"path"
	"strings"

	"github.com/h2non/filetype"
)

const (
	XHTML      = "application/xhtml+xml"
	HTML       = "text/html"
	CSS        = "text/css"
	SVG        = "image/svg+xml"
	NCX        = "application/x-dtbncx+xml"
	OPF        = "application/oebps-package+xml"
	JavaScript = "application/javascript"
)

var extToType = map[string]string{
	".xhtml": XHTML,
	".html":  XHTML,
	".htm":   XHTML,
	".css":   CSS,
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".png":   "image/png",
	".gif":   "image/gif",
	".webp":  "image/webp",
	".bmp":   "image/bmp",
	".tif":   "image/tiff",
	".tiff":  "image/tiff",
	".svg":   SVG,
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".ttc":   "font/collection",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".eot":   "application/vnd.ms-fontobject",
	".mp3":   "audio/mpeg",
	".m4a":   "audio/mp4",
	".aac":   "audio/aac",
	".oga":   "audio/ogg",
	".ogg":   "audio/ogg",
	".wav":   "audio/wav",
	".flac":  "audio/flac",
	".mp4":   "video/mp4",
	".m4v":   "video/mp4",
	".webm":  "video/webm",
	".ogv":   "video/ogg",
	".js":    JavaScript,
	".txt":   "text/plain",
	".vtt":   "text/vtt",
	".ttml":  "application/ttml+xml",
	".smil":  "application/smil+xml",
	".pls":   "application/pls+xml",
	".xpgt":  "application/adobe-page-template+xml",
	".xml":   "application/xml",
	".pdf":   "application/pdf",
	".ncx":   NCX,
	".opf":   OPF,
}

// FromExtension returns media type for the file name extension or empty
// string when extension is unknown.
func FromExtension(name string) string {
	return extToType[strings.ToLower(path.Ext(name))]
}

// Extension returns preferred extension (with leading dot) for media type.
func Extension(mediaType string) string {
	switch mediaType {
	case XHTML, HTML:
		return ".xhtml"
	case "image/jpeg":
		return ".jpg"
	case "audio/ogg":
		return ".ogg"
	case "video/mp4":
		return ".mp4"
	}
	for ext, mt := range extToType {
		if mt == mediaType {
			return ext
		}
	}
	return ""
}

// Sniff detects media type from the file content. Empty string is returned
// when content is not recognized.
func Sniff(file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 261)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	kind, err := filetype.Match(head[:n])
	if err != nil || kind == filetype.Unknown {
		return "", nil
	}
	return kind.MIME.Value, nil
}

// Resolve returns media type for file using hint first, then extension and
// finally file content. Result may be empty.
func Resolve(file, hint string) string {
	if hint != "" {
		return hint
	}
	if mt := FromExtension(file); mt != "" {
		return mt
	}
	mt, _ := Sniff(file)
	return mt
}

// IsFont reports if media type denotes font resource.
func IsFont(mediaType string) bool {
	return strings.HasPrefix(mediaType, "font/") ||
		strings.HasPrefix(mediaType, "application/font-") ||
		strings.HasPrefix(mediaType, "application/x-font-") ||
		mediaType == "application/vnd.ms-fontobject"
}

// IsImage reports if media type denotes raster or vector image.
func IsImage(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/")
}

// GroupOf returns media group for media type. Unknown types belong to Misc.
func GroupOf(mediaType string) Group {
	switch {
	case mediaType == XHTML || mediaType == HTML:
		return GroupText
	case mediaType == CSS:
		return GroupStyles
	case mediaType == OPF:
		return GroupOpf
	case mediaType == NCX:
		return GroupNcx
	case IsImage(mediaType):
		return GroupImages
	case IsFont(mediaType):
		return GroupFonts
	case strings.HasPrefix(mediaType, "audio/"):
		return GroupAudio
	case strings.HasPrefix(mediaType, "video/"):
		return GroupVideo
	}
	return GroupMisc
}

// KindOf returns resource kind for media type. Unknown types are Generic.
func KindOf(mediaType string) Kind {
	switch mediaType {
	case XHTML, HTML:
		return KindHtml
	case CSS:
		return KindCss
	case SVG:
		return KindSvg
	case OPF:
		return KindOpf
	case NCX:
		return KindNcx
	case "application/pdf":
		return KindPdf
	case "text/plain", "text/vtt", JavaScript, "text/javascript":
		return KindMiscText
	case "application/xml", "text/xml", "application/ttml+xml", "application/smil+xml",
		"application/pls+xml", "application/adobe-page-template+xml", "application/oebps-page-map+xml":
		return KindXml
	}
	switch {
	case IsImage(mediaType):
		return KindImage
	case IsFont(mediaType):
		return KindFont
	case strings.HasPrefix(mediaType, "audio/"):
		return KindAudio
	case strings.HasPrefix(mediaType, "video/"):
		return KindVideo
	}
	return KindGeneric
}
