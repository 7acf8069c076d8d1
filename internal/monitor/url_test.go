package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"StripsFragment", "https://example.com/page#section", "https://example.com/page"},
		{"StripsTrailingSlash", "https://example.com/docs/", "https://example.com/docs"},
		{"KeepsRootSlash", "https://example.com/", "https://example.com/"},
		{"AddsRootSlash", "https://example.com", "https://example.com/"},
		{"LowercasesHost", "https://EXAMPLE.com/Page", "https://example.com/Page"},
		{"RemovesDefaultPort", "https://example.com:443/x", "https://example.com/x"},
		{"SortsQuery", "https://example.com/x?b=2&a=1", "https://example.com/x?a=1&b=2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeURL(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"https://example.com/a/b/?q=1#frag",
		"http://www.example.com:80/",
		"https://example.com/file.pdf",
	}
	for _, in := range inputs {
		once, err := NormalizeURL(in)
		require.NoError(t, err)
		twice, err := NormalizeURL(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestSameDomain(t *testing.T) {
	t.Parallel()

	assert.True(t, SameDomain("https://www.a.com/x", "https://a.com/y"))
	assert.True(t, SameDomain("https://a.com/x", "https://www.a.com/y"))
	assert.True(t, SameDomain("https://a.com", "https://a.com/deep/path"))
	assert.False(t, SameDomain("https://a.com", "https://b.com"))
	assert.False(t, SameDomain("not a url at %%", "also not"))
}

func TestIsFileURL(t *testing.T) {
	t.Parallel()

	assert.True(t, IsFileURL("https://a.com/report.pdf"))
	assert.True(t, IsFileURL("https://a.com/archive.tar.gz"))
	assert.True(t, IsFileURL("https://a.com/DATA.CSV"))
	assert.False(t, IsFileURL("https://a.com/page"))
	assert.False(t, IsFileURL("https://a.com/page.html"))
}

func TestFileExtension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pdf", FileExtension("https://a.com/x/report.PDF"))
	assert.Equal(t, "gz", FileExtension("https://a.com/archive.tar.gz"))
	assert.Equal(t, "", FileExtension("https://a.com/plain"))
}

func TestHostDir(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "example.com", HostDir("https://example.com/x"))
	assert.Equal(t, "example.com_8080", HostDir("http://example.com:8080/x"))
	assert.Equal(t, "unknown", HostDir("relative/path"))
}
