package pdf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/a3tai/hblib/internal/library"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSessionID(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    int
		wantErr error
	}{
		{name: "plain number", path: "184.pdf", want: 184},
		{name: "prefixed", path: "TE 078 Tempogegenstoß.pdf", want: 78},
		{name: "first run wins", path: "TE12_v2.pdf", want: 12},
		{name: "digits in directory ignored", path: filepath.Join("2024", "TE_7.pdf"), want: 7},
		{name: "no digits", path: "Angriff.pdf", wantErr: ErrNoSessionID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSessionID(tt.path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTextBackend(t *testing.T) {
	b, err := ParseTextBackend("FITZ")
	require.NoError(t, err)
	assert.Equal(t, BackendFitz, b)

	b, err = ParseTextBackend("ledongthuc")
	require.NoError(t, err)
	assert.Equal(t, BackendLedongthuc, b)

	_, err = ParseTextBackend("poppler")
	assert.Error(t, err)
}

func TestValidator_ValidateFileInfo(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, size int) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
		return path
	}

	v := NewValidator(100)
	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{name: "ok", path: write("ok.pdf", 10)},
		{name: "upper case extension", path: write("OK.PDF", 10)},
		{name: "not pdf", path: write("notes.txt", 10), wantErr: "not a PDF"},
		{name: "empty", path: write("empty.pdf", 0), wantErr: "empty"},
		{name: "too large", path: write("big.pdf", 101), wantErr: "too large"},
		{name: "directory", path: dir, wantErr: "directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := os.Stat(tt.path)
			require.NoError(t, err)
			err = v.ValidateFileInfo(tt.path, info)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidator_ValidateFile(t *testing.T) {
	v := NewValidator(1024)

	assert.ErrorContains(t, v.ValidateFile(""), "cannot be empty")
	assert.ErrorContains(t, v.ValidateFile("/non/existent/file.pdf"), "does not exist")

	garbage := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(garbage, []byte("not a pdf at all"), 0o644))
	assert.ErrorContains(t, v.ValidateFile(garbage), "invalid PDF")
	assert.False(t, v.IsValidPDF(garbage))
}

func TestSearch_FindPDFs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"TE 20.pdf", "TE 3.pdf", "Angriff.pdf", "notes.txt", "TE 9.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "TE 4.pdf"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "TE 5.pdf"), 0o750))

	files, err := NewSearch(1024, zerolog.Nop()).FindPDFs(dir)
	require.NoError(t, err)

	var names []string
	var ids []int
	for _, f := range files {
		names = append(names, f.Name)
		ids = append(ids, f.SessionID)
	}
	assert.Equal(t, []string{"TE 20.pdf", "TE 3.pdf", "TE 9.pdf"}, names, "sorted by file name")
	assert.Equal(t, []int{20, 3, 9}, ids)

	_, err = NewSearch(1024, zerolog.Nop()).FindPDFs(filepath.Join(dir, "missing"))
	assert.ErrorContains(t, err, "does not exist")
}

type fakeRenderer struct {
	pages   int
	failing map[int]bool
}

func (f fakeRenderer) PageCount() int { return f.pages }

func (f fakeRenderer) RenderPNG(page int, dpi float64) ([]byte, error) {
	if f.failing[page] {
		return nil, errors.New("broken page")
	}
	return []byte{0x89, 'P', 'N', 'G', byte(page)}, nil
}

func TestRenderPages(t *testing.T) {
	root := t.TempDir()

	images, err := RenderPages(fakeRenderer{pages: 3, failing: map[int]bool{2: true}}, root, 78, 0, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, []library.Image{
		{Path: "drill_images/TE_078/TE_078_page_1.png", Page: 1, Order: 1, Type: library.ImageTypeFullPage},
		{Path: "drill_images/TE_078/TE_078_page_3.png", Page: 3, Order: 1, Type: library.ImageTypeFullPage},
	}, images)

	for _, img := range images {
		_, err := os.Stat(filepath.Join(root, filepath.FromSlash(img.Path)))
		assert.NoError(t, err)
	}
	_, err = os.Stat(filepath.Join(SessionImageDir(root, 78), PageImageName(78, 2)))
	assert.True(t, os.IsNotExist(err), "failed page leaves no file")
}

func TestPageImageName(t *testing.T) {
	assert.Equal(t, "TE_078_page_3.png", PageImageName(78, 3))
	assert.Equal(t, "TE_184_page_12.png", PageImageName(184, 12))
	assert.Equal(t, "drill_images/TE_078/TE_078_page_3.png", library.RelativeImagePath(78, PageImageName(78, 3)))
}

func TestEmbeddedImageName(t *testing.T) {
	assert.Equal(t, "78-2_img1.jpg", EmbeddedImageName(78, 2, 1, "jpg"))
}

func TestNormalizeImageFormat(t *testing.T) {
	tests := map[string]string{
		"jpg":  "jpg",
		"JPEG": "jpg",
		"png":  "png",
		"tif":  "tif",
		"jpx":  "jp2",
		"jb2":  "",
		"":     "",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeImageFormat(in), in)
	}
}

func TestExtractEmbedded_MissingFile(t *testing.T) {
	_, err := NewAssets(zerolog.Nop()).ExtractEmbedded(filepath.Join(t.TempDir(), "missing.pdf"), t.TempDir(), 1)
	assert.ErrorContains(t, err, "failed to open PDF")
}
