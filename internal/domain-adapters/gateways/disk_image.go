package gateways

import (
	"context"
	"strings"
	"sync"

	uerrors "github.com/ochairo/unipkg/internal/domain/errors"
	"github.com/ochairo/unipkg/internal/domain/interfaces"
)

// DiskImageMounter attaches disk images read-only through hdiutil
type DiskImageMounter struct {
	runner ToolRunner
	logger interfaces.Logger
}

// NewDiskImageMounter creates a mounter on top of runner
func NewDiskImageMounter(runner ToolRunner, logger interfaces.Logger) *DiskImageMounter {
	return &DiskImageMounter{
		runner: runner,
		logger: interfaces.OrNoOp(logger).Named("dmg"),
	}
}

// MountedImage is an attached image. Detach releases it.
type MountedImage struct {
	MountPoint string
	Image      string

	mounter *DiskImageMounter
	once    sync.Once
	err     error
}

// Attach mounts image without browsing side effects and returns a handle
// whose Detach must be called
func (m *DiskImageMounter) Attach(ctx context.Context, image string) (*MountedImage, error) {
	res := m.runner.Run(ctx, Command{
		Name: "hdiutil",
		Args: []string{"attach", "-nobrowse", "-readonly", image},
	})
	if !res.Success {
		return nil, uerrors.Wrap(res.Err(), uerrors.KindExtractionFailed, "failed to attach %s", image)
	}

	mountPoint, err := ParseMountPoint(res.Stdout)
	if err != nil {
		m.detachDevice(ctx, image, res.Stdout)
		return nil, err
	}

	m.logger.Debug("image attached", interfaces.F("image", image), interfaces.F("mount_point", mountPoint))
	return &MountedImage{MountPoint: mountPoint, Image: image, mounter: m}, nil
}

// Detach unmounts the image. Only the first call runs the tool; later calls
// return its result. It runs even when ctx is already canceled.
func (mi *MountedImage) Detach(ctx context.Context) error {
	mi.once.Do(func() {
		res := mi.mounter.runner.Run(context.WithoutCancel(ctx), Command{
			Name: "hdiutil",
			Args: []string{"detach", mi.MountPoint},
		})
		mi.err = res.Err()
	})
	return mi.err
}

// detachDevice releases an image whose mount point could not be recovered,
// using the device node hdiutil printed first. Failures are only logged.
func (m *DiskImageMounter) detachDevice(ctx context.Context, image, output string) {
	device, ok := ParseDeviceNode(output)
	if !ok {
		m.logger.Warn("attached image has no device node to detach", interfaces.F("image", image))
		return
	}
	res := m.runner.Run(context.WithoutCancel(ctx), Command{
		Name: "hdiutil",
		Args: []string{"detach", device},
	})
	if !res.Success {
		m.logger.Warn("failed to detach image",
			interfaces.F("image", image),
			interfaces.F("device", device),
			interfaces.Err(res.Err()))
	}
}

// WithMountedImage attaches image, runs fn against the mount point and
// always attempts to detach afterwards. A detach failure is logged and
// never replaces fn's result.
func (m *DiskImageMounter) WithMountedImage(ctx context.Context, image string, fn func(mountPoint string) error) error {
	mounted, err := m.Attach(ctx, image)
	if err != nil {
		return err
	}
	defer func() {
		if err := mounted.Detach(ctx); err != nil {
			m.logger.Warn("failed to detach image",
				interfaces.F("mount_point", mounted.MountPoint),
				interfaces.Err(err))
		}
	}()

	return fn(mounted.MountPoint)
}

// ParseMountPoint recovers the mount point from `hdiutil attach` output:
// the last field of the final non-empty line. Fields are tab separated;
// lines without tabs fall back to whitespace splitting.
func ParseMountPoint(output string) (string, error) {
	lines := strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")

	var last string
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			last = lines[i]
			break
		}
	}
	if last == "" {
		return "", uerrors.New(uerrors.KindExtractionFailed, "hdiutil reported no mount point")
	}

	var field string
	if strings.Contains(last, "\t") {
		parts := strings.Split(last, "\t")
		field = strings.TrimSpace(parts[len(parts)-1])
	} else {
		parts := strings.Fields(last)
		field = parts[len(parts)-1]
	}

	if field == "" || !strings.HasPrefix(field, "/") {
		return "", uerrors.New(uerrors.KindExtractionFailed, "cannot parse mount point from %q", strings.TrimSpace(last))
	}
	return field, nil
}

// ParseDeviceNode returns the first field of the first non-empty line of
// `hdiutil attach` output when it is a /dev node
func ParseDeviceNode(output string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if strings.HasPrefix(fields[0], "/dev/") {
			return fields[0], true
		}
		return "", false
	}
	return "", false
}
