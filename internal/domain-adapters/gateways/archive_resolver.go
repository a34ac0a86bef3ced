package gateways

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/ochairo/unipkg/internal/domain/entities"
	uerrors "github.com/ochairo/unipkg/internal/domain/errors"
	"github.com/ochairo/unipkg/internal/domain/interfaces"
)

// InputFormat is how an input descriptor is turned into a bundle
type InputFormat string

const (
	FormatBundle      InputFormat = "bundle"
	FormatZip         InputFormat = "zip"
	FormatTarBzip2    InputFormat = "tar.bz2"
	FormatBzip2       InputFormat = "bz2"
	FormatTarXz       InputFormat = "tar.xz"
	FormatDiskImage   InputFormat = "dmg"
	FormatUnsupported InputFormat = ""
)

// maxEntrySize caps a single extracted file (decompression bomb guard)
const maxEntrySize = 4 << 30

// ClassifyInput maps a path's suffix, case-insensitively, onto an input format
func ClassifyInput(path string) InputFormat {
	p := strings.ToLower(strings.TrimRight(strings.TrimSpace(path), "/"))
	switch {
	case strings.HasSuffix(p, BundleSuffix):
		return FormatBundle
	case strings.HasSuffix(p, ".zip"):
		return FormatZip
	case strings.HasSuffix(p, ".tar.bz2"), strings.HasSuffix(p, ".tbz2"), strings.HasSuffix(p, ".tbz"):
		return FormatTarBzip2
	case strings.HasSuffix(p, ".bz2"):
		return FormatBzip2
	case strings.HasSuffix(p, ".tar.xz"), strings.HasSuffix(p, ".txz"):
		return FormatTarXz
	case strings.HasSuffix(p, ".dmg"):
		return FormatDiskImage
	default:
		return FormatUnsupported
	}
}

// Fetcher downloads a remote input into a directory
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, destDir string) (string, error)
}

// SourceVerifier checks a local archive against an input's integrity data
type SourceVerifier interface {
	Verify(ctx context.Context, path string, src entities.InputSource) error
}

// ArchiveResolver turns an input descriptor into an application bundle path
type ArchiveResolver struct {
	runner   ToolRunner
	fetcher  Fetcher
	verifier SourceVerifier
	mounter  *DiskImageMounter
	logger   interfaces.Logger
}

// NewArchiveResolver wires the resolver. fetcher and verifier may be nil
// when remote inputs or integrity checks are not needed.
func NewArchiveResolver(runner ToolRunner, fetcher Fetcher, verifier SourceVerifier, logger interfaces.Logger) *ArchiveResolver {
	logger = interfaces.OrNoOp(logger)
	return &ArchiveResolver{
		runner:   runner,
		fetcher:  fetcher,
		verifier: verifier,
		mounter:  NewDiskImageMounter(runner, logger),
		logger:   logger.Named("resolver"),
	}
}

// Resolve resolves a bare descriptor. See ResolveSource.
func (r *ArchiveResolver) Resolve(ctx context.Context, descriptor, workDir string) (string, error) {
	return r.ResolveSource(ctx, entities.InputSource{Descriptor: descriptor}, workDir)
}

// ResolveSource downloads, verifies and expands src below workDir and
// returns the path of the bundle it contains. Bundle inputs are returned
// as-is. Every directory it creates lives under workDir.
func (r *ArchiveResolver) ResolveSource(ctx context.Context, src entities.InputSource, workDir string) (string, error) {
	descriptor := strings.TrimSpace(src.Descriptor)
	if descriptor == "" {
		return "", uerrors.New(uerrors.KindMissingInput, "input descriptor is empty")
	}

	// 1. Classify before any I/O so unsupported inputs fail fast
	path := descriptor
	if src.IsRemote() {
		u, err := ParseRemoteURL(descriptor)
		if err != nil {
			return "", err
		}
		path = RemoteFileName(u)
	}
	format := ClassifyInput(path)
	if format == FormatUnsupported || (format == FormatBundle && src.IsRemote()) {
		return "", uerrors.New(uerrors.KindUnsupportedInputType, "unsupported input type: %s", filepath.Base(path))
	}

	// 2. Bundles bypass extraction
	if format == FormatBundle {
		return r.resolveBundleDir(descriptor, src)
	}

	// 3. Fetch remote archives into an isolated download directory
	if src.IsRemote() {
		if r.fetcher == nil {
			return "", uerrors.New(uerrors.KindDownloadFailed, "remote inputs are not enabled")
		}
		downloadDir, err := os.MkdirTemp(workDir, "download-*")
		if err != nil {
			return "", uerrors.Wrap(err, uerrors.KindDownloadFailed, "failed to create download directory")
		}
		if path, err = r.fetcher.Fetch(ctx, descriptor, downloadDir); err != nil {
			return "", err
		}
	} else if info, err := os.Stat(path); err != nil || info.IsDir() {
		return "", uerrors.New(uerrors.KindExtractionFailed, "input archive %s not found", path)
	}

	// 4. Integrity checks run before anything is expanded
	if err := r.verify(ctx, path, src); err != nil {
		return "", err
	}

	// 5. Expand
	extractDir, err := os.MkdirTemp(workDir, "extract-*")
	if err != nil {
		return "", uerrors.Wrap(err, uerrors.KindExtractionFailed, "failed to create extraction directory")
	}

	r.logger.Info("extracting input", interfaces.F("input", filepath.Base(path)), interfaces.F("format", format))
	if format == FormatDiskImage {
		return r.extractDiskImage(ctx, path, extractDir)
	}
	if err := r.expand(ctx, format, path, extractDir); err != nil {
		return "", err
	}

	// 6. Locate the bundle at the top level
	bundle, ok := FindBundle(extractDir)
	if !ok {
		return "", uerrors.New(uerrors.KindBundleNotFound, "no application bundle found in %s", filepath.Base(path))
	}
	return bundle, nil
}

func (r *ArchiveResolver) resolveBundleDir(path string, src entities.InputSource) (string, error) {
	path = strings.TrimRight(path, "/")
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return "", uerrors.New(uerrors.KindBundleNotFound, "application bundle %s not found", path)
	}
	if src.SHA256 != "" || src.Signature != "" {
		return "", uerrors.New(uerrors.KindVerificationFailed, "integrity checks apply to archive inputs, not to %s", filepath.Base(path))
	}
	return path, nil
}

func (r *ArchiveResolver) verify(ctx context.Context, path string, src entities.InputSource) error {
	if src.SHA256 == "" && src.Signature == "" {
		return nil
	}
	if r.verifier == nil {
		return uerrors.New(uerrors.KindVerificationFailed, "integrity data given for %s but no verifier is configured", filepath.Base(path))
	}
	return r.verifier.Verify(ctx, path, src)
}

func (r *ArchiveResolver) expand(ctx context.Context, format InputFormat, path, extractDir string) error {
	var cmd Command
	switch format {
	case FormatZip:
		cmd = Command{Name: "ditto", Args: []string{"-x", "-k", path, extractDir}}
	case FormatTarBzip2:
		cmd = Command{Name: "tar", Args: []string{"-xjf", path, "-C", extractDir}}
	case FormatBzip2:
		compressed := filepath.Join(extractDir, filepath.Base(path))
		info, err := os.Stat(path)
		if err != nil {
			return uerrors.Wrap(err, uerrors.KindExtractionFailed, "cannot read %s", path)
		}
		if err := copyFile(path, compressed, info.Mode().Perm()|0600); err != nil {
			return uerrors.Wrap(err, uerrors.KindExtractionFailed, "cannot stage %s", filepath.Base(path))
		}
		cmd = Command{Name: "bunzip2", Args: []string{compressed}, WorkingDir: extractDir}
	case FormatTarXz:
		if err := r.extractTarXz(path, extractDir); err != nil {
			return uerrors.Wrap(err, uerrors.KindExtractionFailed, "failed to extract %s", filepath.Base(path))
		}
		return nil
	default:
		return uerrors.New(uerrors.KindUnsupportedInputType, "unsupported input type: %s", filepath.Base(path))
	}

	if res := r.runner.Run(ctx, cmd); !res.Success {
		return uerrors.Wrap(res.Err(), uerrors.KindExtractionFailed, "%s failed on %s", cmd.Name, filepath.Base(path))
	}
	return nil
}

func (r *ArchiveResolver) extractDiskImage(ctx context.Context, image, extractDir string) (string, error) {
	var bundle string
	err := r.mounter.WithMountedImage(ctx, image, func(mountPoint string) error {
		found, ok := FindBundle(mountPoint)
		if !ok {
			return uerrors.New(uerrors.KindBundleNotFound, "no application bundle found in %s", filepath.Base(image))
		}

		dest := filepath.Join(extractDir, filepath.Base(found))
		if err := CopyTree(found, dest); err != nil {
			return uerrors.Wrap(err, uerrors.KindExtractionFailed, "failed to copy %s out of the image", filepath.Base(found))
		}
		bundle = dest
		return nil
	})
	if err != nil {
		return "", err
	}
	return bundle, nil
}

// extractTarXz extracts a .tar.xz file to destination directory
func (r *ArchiveResolver) extractTarXz(archivePath, destDir string) error {
	//nolint:gosec // G304: archivePath is the input being resolved
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open tar.xz: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer file.Close()

	xzr, err := xz.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create xz reader: %w", err)
	}
	tr := tar.NewReader(xzr)

	// Links are created after all files so their targets exist
	type linkInfo struct {
		target   string
		linkname string
	}
	var symlinks, hardlinks []linkInfo

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("tar read error: %w", err)
		}

		//nolint:gosec // G305: Path traversal validated by within check below
		target := filepath.Join(destDir, header.Name)
		if !within(destDir, target) {
			return fmt.Errorf("invalid file path in archive: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

		case tar.TypeReg:
			if header.Size < 0 || header.Size > maxEntrySize {
				return fmt.Errorf("entry %s is %d bytes, limit is %d", header.Name, header.Size, int64(maxEntrySize))
			}
			if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
				return fmt.Errorf("failed to create parent directory: %w", err)
			}
			//nolint:gosec // G115: tar header mode fits in FileMode permission bits
			outFile, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, os.FileMode(header.Mode).Perm())
			if err != nil {
				return fmt.Errorf("failed to create file: %w", err)
			}
			if _, err := io.CopyN(outFile, tr, header.Size); err != nil {
				_ = outFile.Close()
				return fmt.Errorf("failed to write file: %w", err)
			}
			if err := outFile.Close(); err != nil {
				return fmt.Errorf("failed to close file: %w", err)
			}

		case tar.TypeSymlink:
			if filepath.IsAbs(header.Linkname) || !within(destDir, filepath.Join(filepath.Dir(target), header.Linkname)) {
				return fmt.Errorf("symlink escapes archive root: %s -> %s", header.Name, header.Linkname)
			}
			symlinks = append(symlinks, linkInfo{target: target, linkname: header.Linkname})

		case tar.TypeLink:
			//nolint:gosec // G305: hard link source validated by within check below
			source := filepath.Join(destDir, header.Linkname)
			if filepath.IsAbs(header.Linkname) || !within(destDir, source) {
				return fmt.Errorf("hard link escapes archive root: %s -> %s", header.Name, header.Linkname)
			}
			hardlinks = append(hardlinks, linkInfo{target: target, linkname: source})

		default:
			r.logger.Debug("ignoring unsupported tar entry",
				interfaces.F("type", string(header.Typeflag)),
				interfaces.F("name", header.Name))
		}
	}

	for _, link := range hardlinks {
		if err := os.MkdirAll(filepath.Dir(link.target), 0750); err != nil {
			return fmt.Errorf("failed to create directory for hard link: %w", err)
		}
		if err := os.Link(link.linkname, link.target); err != nil {
			return fmt.Errorf("failed to create hard link %s: %w", link.target, err)
		}
	}

	for _, link := range symlinks {
		if err := os.MkdirAll(filepath.Dir(link.target), 0750); err != nil {
			return fmt.Errorf("failed to create directory for symlink: %w", err)
		}
		if err := os.Symlink(link.linkname, link.target); err != nil {
			return fmt.Errorf("failed to create symlink %s: %w", link.target, err)
		}
	}
	return nil
}
