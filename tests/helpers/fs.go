package helpers

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TempDirWithEmptyFiles creates a temporary directory (cleaned up when the
// test completes) containing an empty file for each of the names given. The
// names are used as file name suffixes, so extensions are preserved.
func TempDirWithEmptyFiles(t *testing.T, files []string) (string, []string) {
	dirPath := t.TempDir()
	filePaths := make([]string, 0, len(files))
	for _, filename := range files {
		file, err := os.CreateTemp(dirPath, "*"+filename)
		assert.Nil(t, err, "failed to create temporary file in temporary dir")
		filePaths = append(filePaths, file.Name())
		assert.Nil(t, file.Close(), "failed to close temporary file")
	}

	assert.Len(t, filePaths, len(files), "Expected file paths recorded to match length of requested files")
	return dirPath, filePaths
}
