package grabfile

import (
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// FallbackFilename is used when no name can be derived for a file.
const FallbackFilename = "downloaded_file"

// MaxFilenameLength caps sanitized filenames.
const MaxFilenameLength = 200

// binaryExtensions lists URL path extensions that identify downloadable files.
var binaryExtensions = map[string]struct{}{
	".zip": {}, ".rar": {}, ".7z": {}, ".tar": {}, ".gz": {}, ".tgz": {},
	".bz2": {}, ".xz": {}, ".zst": {}, ".apk": {}, ".xapk": {}, ".apks": {},
	".ipa": {}, ".exe": {}, ".msi": {}, ".dmg": {}, ".pkg": {}, ".deb": {},
	".rpm": {}, ".appimage": {}, ".iso": {}, ".img": {}, ".bin": {},
	".pdf": {}, ".epub": {}, ".mobi": {}, ".mp4": {}, ".mkv": {}, ".avi": {},
	".mov": {}, ".webm": {}, ".mp3": {}, ".flac": {}, ".wav": {}, ".m4a": {},
	".jar": {}, ".obb": {},
}

// mimeExtensions is consulted before the system MIME table so common
// download types map to their conventional extension.
var mimeExtensions = map[string]string{
	"application/zip":                       ".zip",
	"application/x-zip-compressed":          ".zip",
	"application/x-rar-compressed":          ".rar",
	"application/vnd.rar":                   ".rar",
	"application/x-7z-compressed":           ".7z",
	"application/gzip":                      ".gz",
	"application/x-gzip":                    ".gz",
	"application/x-tar":                     ".tar",
	"application/vnd.android.package-archive": ".apk",
	"application/x-msdownload":              ".exe",
	"application/x-msdos-program":           ".exe",
	"application/x-iso9660-image":           ".iso",
	"application/pdf":                       ".pdf",
	"application/octet-stream":              ".bin",
	"video/mp4":                             ".mp4",
	"video/x-matroska":                      ".mkv",
	"audio/mpeg":                            ".mp3",
}

// nonFileApplicationTypes are application/* types that carry page data
// rather than downloads.
var nonFileApplicationTypes = []string{
	"json", "javascript", "ecmascript", "xml", "x-www-form-urlencoded",
	"wasm", "font", "manifest", "grpc", "csp-report", "reports",
}

var (
	disallowedRunes = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	repeatedFillers = regexp.MustCompile(`_{2,}`)
	quotedFilename  = regexp.MustCompile(`(?i)filename\*?=(?:UTF-8'[^']*')?"?([^";]+)"?`)
)

// SanitizeFilename restricts raw to [A-Za-z0-9._-], strips any directory
// component, and caps the length at MaxFilenameLength while keeping the
// extension. An empty result falls back to FallbackFilename plus an
// extension derived from mimeType.
func SanitizeFilename(raw, mimeType string) string {
	name := strings.ReplaceAll(raw, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = disallowedRunes.ReplaceAllString(name, "_")
	name = repeatedFillers.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, "._-")
	name = strings.TrimRight(name, "._")

	if strings.Trim(name, "_-") == "" {
		name = FallbackFilename + sanitizedExtension(ExtensionForMIME(mimeType))
	}

	if len(name) > MaxFilenameLength {
		ext := path.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = strings.TrimRight(name[:MaxFilenameLength-len(ext)], ".") + ext
	}
	return name
}

func sanitizedExtension(ext string) string {
	ext = disallowedRunes.ReplaceAllString(ext, "")
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// ExtensionForMIME returns a file extension including the leading dot for
// mimeType, or "" when the type is unknown.
func ExtensionForMIME(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(mimeType))
	}
	if ext, ok := mimeExtensions[mediaType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// FilenameFromDisposition extracts the filename parameter of a
// Content-Disposition header. RFC 5987 filename* values are decoded.
func FilenameFromDisposition(cd string) (string, bool) {
	if cd == "" {
		return "", false
	}
	if _, params, err := mime.ParseMediaType(cd); err == nil {
		if name := strings.TrimSpace(params["filename"]); name != "" {
			return name, true
		}
	}
	if m := quotedFilename.FindStringSubmatch(cd); m != nil {
		name := strings.TrimSpace(m[1])
		if decoded, err := url.PathUnescape(name); err == nil {
			name = decoded
		}
		if name != "" {
			return name, true
		}
	}
	return "", false
}

// FilenameFromURL returns the unescaped last path segment of rawURL.
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "blob" || u.Scheme == "data" {
		return ""
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	return base
}

// ResolveFilename derives a sanitized filename for a remote file from its
// Content-Disposition header, its URL basename, or its MIME type, in that
// order.
func ResolveFilename(contentDisposition, rawURL, mimeType string) string {
	if name, ok := FilenameFromDisposition(contentDisposition); ok {
		return SanitizeFilename(name, mimeType)
	}
	if name := FilenameFromURL(rawURL); name != "" {
		if path.Ext(name) == "" {
			name += ExtensionForMIME(mimeType)
		}
		return SanitizeFilename(name, mimeType)
	}
	return SanitizeFilename("", mimeType)
}

// HasBinaryExtension reports whether rawURL's path ends with a known
// downloadable file extension.
func HasBinaryExtension(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	_, ok := binaryExtensions[strings.ToLower(path.Ext(u.Path))]
	return ok
}

// IsFileLike classifies an HTTP response as a file download.
func IsFileLike(contentType, contentDisposition, rawURL string) bool {
	if strings.Contains(strings.ToLower(contentDisposition), "attachment") {
		return true
	}
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "octet-stream") {
		return true
	}
	if strings.HasPrefix(ct, "application/") {
		sub := strings.TrimPrefix(ct, "application/")
		for _, skip := range nonFileApplicationTypes {
			if strings.Contains(sub, skip) {
				return false
			}
		}
		return true
	}
	return HasBinaryExtension(rawURL)
}
