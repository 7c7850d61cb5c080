package provision

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"github.com/blueberrycoding/bbmp-launcher/internal/logger"
)

// Extractor unpacks a runtime archive into a directory.
type Extractor interface {
	Extract(ctx context.Context, kind ArchiveKind, archivePath, dest string) error
}

// CommandExtractor spawns the platform's archive utility.
type CommandExtractor struct{}

// NativeExtractor unpacks archives in-process.
type NativeExtractor struct{}

var (
	// errUnsupportedArchive is returned for an unknown ArchiveKind.
	errUnsupportedArchive = errors.New("unsupported archive format")
	// errUnsafePath is returned for entries that would escape the destination.
	errUnsafePath = errors.New("archive entry escapes destination")
)

const (
	// dirPermissions is used for directories created during extraction.
	dirPermissions = 0o755
	// filePermissions is used for entries without recorded permissions.
	filePermissions = 0o644
)

// Extract runs `tar -xzf` or `powershell.exe Expand-Archive` and waits for it.
func (CommandExtractor) Extract(ctx context.Context, kind ArchiveKind, archivePath, dest string) error {
	var cmd *exec.Cmd

	switch kind {
	case ArchiveTarGz:
		cmd = exec.CommandContext(ctx, "tar", "-xzf", archivePath, "-C", dest)
	case ArchiveZip:
		script := fmt.Sprintf(`Expand-Archive -Path "%s" -DestinationPath "%s" -Force`, archivePath, dest)
		cmd = exec.CommandContext(ctx, "powershell.exe", "-NoProfile", "-Command", script)
	default:
		return fmt.Errorf("%w: %s", errUnsupportedArchive, kind)
	}

	var output bytes.Buffer

	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", filepath.Base(cmd.Path), err, strings.TrimSpace(output.String()))
	}

	return nil
}

// Extract unpacks zip or tar.gz archives with the klauspost readers.
func (NativeExtractor) Extract(ctx context.Context, kind ArchiveKind, archivePath, dest string) error {
	switch kind {
	case ArchiveTarGz:
		return extractTarGz(ctx, archivePath, dest)
	case ArchiveZip:
		return extractZip(archivePath, dest)
	default:
		return fmt.Errorf("%w: %s", errUnsupportedArchive, kind)
	}
}

// extractZip writes every zip entry below dest.
func extractZip(archivePath, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	for _, file := range reader.File {
		target, err := safeJoin(dest, file.Name)
		if err != nil {
			return err
		}

		if err = rejectSymlinks(dest, target); err != nil {
			return err
		}

		if file.FileInfo().IsDir() {
			if err = os.MkdirAll(target, dirPermissions); err != nil {
				return fmt.Errorf("create dir %s: %w", target, err)
			}

			continue
		}

		rc, err := file.Open()
		if err != nil {
			return fmt.Errorf("open zip entry %s: %w", file.Name, err)
		}

		err = writeFile(target, rc, fileMode(file.Mode()))

		_ = rc.Close()

		if err != nil {
			return err
		}
	}

	return nil
}

// extractTarGz writes every tar entry of a gzip stream below dest.
func extractTarGz(ctx context.Context, archivePath, dest string) error {
	file, err := os.Open(archivePath) //nolint:gosec // Path is built by the provisioner.
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("gzip reader: %w", err)
	}

	defer func() {
		_ = gz.Close()
	}()

	return untar(ctx, gz, dest)
}

// untar extracts directories, regular files, hard links and symlinks that
// stay inside dest. Entries are never written through an extracted symlink
// and other entry types are skipped with a warning.
//
//nolint:cyclop,funlen // One case per entry type.
func untar(ctx context.Context, r io.Reader, dest string) error {
	tr := tar.NewReader(r)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target, err := safeJoin(dest, header.Name)
		if err != nil {
			return err
		}

		if err = rejectSymlinks(dest, target); err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err = os.MkdirAll(target, dirPermissions); err != nil {
				return fmt.Errorf("create dir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err = writeFile(target, tr, fileMode(os.FileMode(header.Mode))); err != nil { //nolint:gosec // Mode fits in 32 bits.
				return err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(header.Linkname) {
				return fmt.Errorf("%w: %s -> %s", errUnsafePath, header.Name, header.Linkname)
			}

			resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(header.Linkname))
			if !within(dest, resolved) {
				return fmt.Errorf("%w: %s -> %s", errUnsafePath, header.Name, header.Linkname)
			}

			if err = os.MkdirAll(filepath.Dir(target), dirPermissions); err != nil {
				return fmt.Errorf("prepare link %s: %w", target, err)
			}

			if err = os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("create link %s: %w", target, err)
			}
		case tar.TypeLink:
			// Hard link names are relative to the archive root.
			var source string

			source, err = safeJoin(dest, header.Linkname)
			if err != nil {
				return err
			}

			if err = rejectSymlinks(dest, source); err != nil {
				return err
			}

			if err = os.MkdirAll(filepath.Dir(target), dirPermissions); err != nil {
				return fmt.Errorf("prepare link %s: %w", target, err)
			}

			if err = os.Link(source, target); err != nil {
				return fmt.Errorf("create hard link %s: %w", target, err)
			}
		case tar.TypeXGlobalHeader:
		default:
			logger.WarnKV(ctx, "Skipping archive entry", "name", header.Name, "type", string(header.Typeflag))
		}
	}
}

// rejectSymlinks fails when any existing component of target below dest is
// a symlink. Missing components are created later as plain directories.
func rejectSymlinks(dest, target string) error {
	rel, err := filepath.Rel(dest, target)
	if err != nil {
		return fmt.Errorf("%w: %s", errUnsafePath, target)
	}

	current := dest

	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == "." || part == "" {
			continue
		}

		current = filepath.Join(current, part)

		info, err := os.Lstat(current)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("inspect %s: %w", current, err)
		}

		if info.Mode()&fs.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s passes through symlink %s", errUnsafePath, target, current)
		}
	}

	return nil
}

// writeFile copies r into target, creating parent directories.
func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), dirPermissions); err != nil {
		return fmt.Errorf("prepare file %s: %w", target, err)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode) //nolint:gosec // Target checked by safeJoin.
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}

	if _, err = io.Copy(out, r); err != nil { //nolint:gosec // Runtime archives are trusted downloads.
		_ = out.Close()

		return fmt.Errorf("write file %s: %w", target, err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", target, err)
	}

	return nil
}

// fileMode keeps permission bits, defaulting to 0644 when none are recorded.
func fileMode(mode os.FileMode) os.FileMode {
	if perm := mode.Perm(); perm != 0 {
		return perm
	}

	return filePermissions
}

// safeJoin resolves an archive entry name below dest.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	if !within(dest, target) {
		return "", fmt.Errorf("%w: %s", errUnsafePath, name)
	}

	return target, nil
}

// within reports whether the cleaned path lies in dest or below it.
func within(dest, path string) bool {
	rel, err := filepath.Rel(dest, path)

	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
