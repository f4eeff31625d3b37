package kinds

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MrSnakeDoc/coursemod/internal/logger"
	"github.com/MrSnakeDoc/coursemod/internal/resource"
	"github.com/MrSnakeDoc/coursemod/internal/service"
	"github.com/MrSnakeDoc/coursemod/internal/utils"
)

const (
	// versionFile is written next to the extracted content. A declared id
	// overwrites it; one shipped in the archive root wins over the HTTP ETag.
	versionFile = ".module-version"
	// filesList names every extracted file, one slash-separated path per line.
	filesList = ".module-files"

	DefaultMaxExtracted int64 = 2 << 30
)

var ErrArchiveTooLarge = errors.New("archive expands past the size limit")

// Archive is a module distributed as a zip file over HTTP.
//
// DeclaredID is the version the manifest publishes for the module. When set it
// is what gets recorded locally, so later runs compare like with like.
type Archive struct {
	URL          string
	Dir          string
	Client       service.HTTPClient
	MaxSize      int64
	MaxExtracted int64
	DeclaredID   string
}

func (a *Archive) FetchContent(ctx context.Context) (err error) {
	parent := filepath.Dir(a.Dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", parent, err)
	}

	tmp, err := os.CreateTemp(parent, filepath.Base(a.Dir)+"-*.zip")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	utils.Close(tmp)
	defer func() { _ = os.Remove(tmpPath) }()

	dl, err := service.DownloadToFile(ctx, a.Client, a.URL, tmpPath, a.MaxSize)
	if err != nil {
		return fmt.Errorf("download %s: %w", a.URL, err)
	}
	logger.Debug("downloaded %s (%d bytes, etag=%q)", a.URL, dl.Size, dl.ETag)

	staging := a.Dir + ".partial"
	_ = os.RemoveAll(staging)
	defer func() {
		if err != nil {
			_ = os.RemoveAll(staging)
		}
	}()

	limit := a.MaxExtracted
	if limit <= 0 {
		limit = DefaultMaxExtracted
	}
	files, err := extractZip(tmpPath, staging, limit)
	if err != nil {
		return fmt.Errorf("extract %s: %w", a.URL, err)
	}

	if err := writeVersion(staging, a.DeclaredID, dl.ETag); err != nil {
		return err
	}
	if err := writeFileList(staging, files); err != nil {
		return err
	}

	if err := os.RemoveAll(a.Dir); err != nil {
		return fmt.Errorf("failed to remove previous content of %s: %w", a.Dir, err)
	}
	if err := os.Rename(staging, a.Dir); err != nil {
		return fmt.Errorf("failed to move content into %s: %w", a.Dir, err)
	}
	return nil
}

func (a *Archive) ReadVersionID(context.Context) (string, bool) {
	data, err := os.ReadFile(filepath.Join(a.Dir, versionFile))
	if err != nil {
		return "", false
	}
	id := strings.TrimSpace(string(data))
	return id, id != ""
}

// HasChangedSince reports a file modified after t, or an extracted file that
// is gone. The sidecar files are not content and never count.
func (a *Archive) HasChangedSince(_ context.Context, t time.Time) (bool, error) {
	errFound := errors.New("found")

	err := filepath.WalkDir(a.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || isSidecar(a.Dir, path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(t) {
			return errFound
		}
		return nil
	})

	switch {
	case errors.Is(err, errFound):
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, err
	}
	return a.anyFileMissing()
}

func (a *Archive) anyFileMissing() (bool, error) {
	data, err := os.ReadFile(filepath.Join(a.Dir, filesList))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, rel := range strings.Split(string(data), "\n") {
		if rel == "" {
			continue
		}
		_, err := os.Lstat(filepath.Join(a.Dir, filepath.FromSlash(rel)))
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
	}
	return false, nil
}

func isSidecar(root, path string) bool {
	return filepath.Dir(path) == filepath.Clean(root) &&
		(filepath.Base(path) == versionFile || filepath.Base(path) == filesList)
}

func (a *Archive) DetectState(context.Context) (resource.State, error) {
	ok, err := dirExists(a.Dir)
	if err != nil {
		return resource.Error, err
	}
	if ok {
		return resource.Loaded, nil
	}
	return resource.Unloaded, nil
}

// writeVersion records the declared id when there is one. Otherwise a version
// file shipped in the archive is kept, and failing that the ETag is used.
func writeVersion(dir, declared, etag string) error {
	path := filepath.Join(dir, versionFile)
	id := strings.TrimSpace(declared)
	if id == "" {
		if ok, _ := utils.FileExists(path); ok {
			return nil
		}
		id = normalizeETag(etag)
	}
	if id == "" {
		return nil
	}
	return utils.CreateFile(path, []byte(id+"\n"), utils.FileTypeBinary, 0o644)
}

func writeFileList(dir string, files []string) error {
	var b strings.Builder
	for _, f := range files {
		b.WriteString(f)
		b.WriteByte('\n')
	}
	return utils.CreateFile(filepath.Join(dir, filesList), []byte(b.String()), utils.FileTypeBinary, 0o644)
}

func normalizeETag(etag string) string {
	etag = strings.TrimPrefix(strings.TrimSpace(etag), "W/")
	return strings.Trim(etag, `"`)
}

// extractZip unpacks src into dst, writing at most limit bytes in total, and
// returns the slash-separated paths of the extracted files.
func extractZip(src, dst string, limit int64) ([]string, error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return nil, err
	}
	defer utils.Close(zr)

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return nil, err
	}

	root, err := filepath.Abs(dst)
	if err != nil {
		return nil, err
	}

	var (
		files   []string
		written int64
	)
	for _, f := range zr.File {
		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return nil, fmt.Errorf("illegal path %q in archive", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}
			continue
		}

		n, err := extractFile(f, target, limit-written)
		if err != nil {
			return nil, err
		}
		written += n

		rel, err := filepath.Rel(root, target)
		if err != nil {
			return nil, err
		}
		if rel = filepath.ToSlash(rel); rel != versionFile && rel != filesList {
			files = append(files, rel)
		}
	}
	return files, nil
}

// extractFile copies one entry to target, failing once more than remaining
// bytes would be written. The header size is not trusted.
func extractFile(f *zip.File, target string, remaining int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, err
	}

	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer utils.Close(rc)

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	defer utils.Close(out)

	n, err := io.Copy(out, io.LimitReader(rc, remaining+1))
	if err != nil {
		return n, err
	}
	if n > remaining {
		return n, fmt.Errorf("%w: %s", ErrArchiveTooLarge, f.Name)
	}
	return n, nil
}

func dirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.IsDir(), nil
}
