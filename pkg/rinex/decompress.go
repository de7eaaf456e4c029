package rinex

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver/v3"
	"github.com/pkg/errors"
)

// ErrNotCompressed is returned by Decompress for files without a known compression suffix.
var ErrNotCompressed = errors.New("RINEX: file is not compressed")

// Decompress decompresses a single-stream compressed file, e.g. brux1000.25d.gz, into its sibling
// without the compression suffix and returns the path of the decompressed file.
// An existing target, e.g. left over by an aborted run, is overwritten. The source file is not removed.
func Decompress(path string) (string, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", errors.Wrap(ErrNotCompressed, path)
	}

	iface, err := archiver.ByExtension(path)
	if err != nil {
		return "", errors.Wrap(ErrNotCompressed, path)
	}
	dc, ok := iface.(archiver.Decompressor)
	if !ok {
		return "", errors.Wrapf(ErrNotCompressed, "%s is an archive, not a compressed file", path)
	}

	dst := strings.TrimSuffix(path, ext)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", errors.Wrapf(err, "decompress %s", path)
	}

	fc := archiver.FileCompressor{Decompressor: dc, OverwriteExisting: true}
	if err := fc.DecompressFile(path, dst); err != nil {
		os.Remove(dst)
		return "", errors.Wrapf(err, "decompress %s", path)
	}
	return dst, nil
}
