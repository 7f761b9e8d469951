package grabfile_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/fwojciec/grabfile"
	"github.com/stretchr/testify/assert"
)

var sanitizedName = regexp.MustCompile(`^[A-Za-z0-9._-]{1,200}$`)

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	t.Run("keeps safe names unchanged", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "file.zip", grabfile.SanitizeFilename("file.zip", ""))
		assert.Equal(t, "My_App-1.2.3.apk", grabfile.SanitizeFilename("My_App-1.2.3.apk", ""))
	})

	t.Run("strips directory components", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "passwd", grabfile.SanitizeFilename("../../etc/passwd", ""))
		assert.Equal(t, "setup.exe", grabfile.SanitizeFilename(`C:\Users\me\setup.exe`, ""))
	})

	t.Run("replaces disallowed characters", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "my_file_v2_.zip", grabfile.SanitizeFilename("my file (v2).zip", ""))
		assert.Equal(t, "r_sum_.pdf", grabfile.SanitizeFilename("résumé.pdf", ""))
	})

	t.Run("falls back with a MIME extension when nothing survives", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "downloaded_file.zip", grabfile.SanitizeFilename("", "application/zip"))
		assert.Equal(t, "downloaded_file.apk", grabfile.SanitizeFilename("日本語", "application/vnd.android.package-archive"))
		assert.Equal(t, "downloaded_file", grabfile.SanitizeFilename("...", ""))
	})

	t.Run("caps length and keeps the extension", func(t *testing.T) {
		t.Parallel()

		got := grabfile.SanitizeFilename(strings.Repeat("a", 500)+".zip", "")

		assert.Len(t, got, grabfile.MaxFilenameLength)
		assert.True(t, strings.HasSuffix(got, ".zip"))
	})

	t.Run("always matches the safe filename pattern", func(t *testing.T) {
		t.Parallel()

		inputs := []string{
			"",
			" ",
			".",
			"..",
			"/",
			"a/b/",
			"../../../",
			"name\x00with\x00nul",
			"emoji-😀-name.mp4",
			"Привет мир.rar",
			"\t\n\r",
			"-rf",
			"___",
			strings.Repeat("é", 400),
			strings.Repeat("x", 199) + ".verylongextensionthatgoesonandon",
			strings.Repeat("a/", 300) + "b",
			"file.tar.gz",
			"con.txt",
		}
		mimes := []string{"", "application/octet-stream", "text/html; charset=utf-8", "garbage/??"}
		for _, in := range inputs {
			for _, m := range mimes {
				got := grabfile.SanitizeFilename(in, m)
				assert.Regexp(t, sanitizedName, got, "input %q mime %q", in, m)
			}
		}
	})
}

func TestFilenameFromDisposition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{"quoted", `attachment; filename="report.pdf"`, "report.pdf", true},
		{"unquoted", `attachment; filename=report.pdf`, "report.pdf", true},
		{"rfc5987 preferred", `attachment; filename="fallback.bin"; filename*=UTF-8''na%C3%AFve.zip`, "naïve.zip", true},
		{"malformed still parsed", `attachment;; filename="x y.zip"`, "x y.zip", true},
		{"inline without name", `inline`, "", false},
		{"empty", ``, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := grabfile.FilenameFromDisposition(tt.header)

			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveFilename(t *testing.T) {
	t.Parallel()

	t.Run("prefers content disposition", func(t *testing.T) {
		t.Parallel()

		got := grabfile.ResolveFilename(`attachment; filename="real name.zip"`, "https://host/dl?id=1", "application/zip")
		assert.Equal(t, "real_name.zip", got)
	})

	t.Run("uses URL basename", func(t *testing.T) {
		t.Parallel()

		got := grabfile.ResolveFilename("", "https://host/files/file.zip?token=abc", "")
		assert.Equal(t, "file.zip", got)
	})

	t.Run("adds MIME extension to extensionless basename", func(t *testing.T) {
		t.Parallel()

		got := grabfile.ResolveFilename("", "https://host/get/12345", "application/x-7z-compressed")
		assert.Equal(t, "12345.7z", got)
	})

	t.Run("falls back to MIME-derived name", func(t *testing.T) {
		t.Parallel()

		got := grabfile.ResolveFilename("", "https://host/", "application/pdf")
		assert.Equal(t, "downloaded_file.pdf", got)
	})
}

func TestIsFileLike(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ct   string
		cd   string
		url  string
		want bool
	}{
		{"octet stream", "application/octet-stream", "", "https://h/x", true},
		{"zip type", "application/zip", "", "https://h/x", true},
		{"attachment header", "text/plain", "attachment; filename=a.txt", "https://h/x", true},
		{"binary extension", "text/html", "", "https://h/file.apk", true},
		{"json api", "application/json", "", "https://h/api", false},
		{"javascript", "application/javascript", "", "https://h/app.js", false},
		{"html page", "text/html; charset=utf-8", "", "https://h/page", false},
		{"image", "image/png", "", "https://h/logo.png", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, grabfile.IsFileLike(tt.ct, tt.cd, tt.url))
		})
	}
}

func TestResponse_IsFileLike_IgnoresErrorStatus(t *testing.T) {
	t.Parallel()

	r := grabfile.Response{URL: "https://h/file.zip", Status: 404, ContentType: "application/zip"}

	assert.False(t, r.IsFileLike())
}
