package gateways_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/unipkg/internal/domain-adapters/gateways"
	"github.com/ochairo/unipkg/internal/domain-adapters/gateways/gatewaystest"
	uerrors "github.com/ochairo/unipkg/internal/domain/errors"
)

func TestParseMountPoint(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{
			name:   "tab separated hdiutil output",
			output: "/dev/disk4          \tGUID_partition_scheme          \t\n/dev/disk4s1        \tApple_HFS                      \t/Volumes/Foo 2.0\n",
			want:   "/Volumes/Foo 2.0",
		},
		{
			name:   "trailing blank lines",
			output: "/dev/disk5s1\tApple_APFS\t/Volumes/Foo\n\n  \n",
			want:   "/Volumes/Foo",
		},
		{
			name:   "whitespace separated",
			output: "/dev/disk6s1 Apple_HFS /Volumes/Bar",
			want:   "/Volumes/Bar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gateways.ParseMountPoint(tt.output)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMountPoint_Unparsable(t *testing.T) {
	for _, output := range []string{"", "\n\n", "/dev/disk4\tGUID_partition_scheme\t", "attached"} {
		_, err := gateways.ParseMountPoint(output)
		require.Error(t, err, "output %q", output)
		assert.Equal(t, uerrors.KindExtractionFailed, uerrors.KindOf(err))
	}
}

func TestWithMountedImage_DetachesAfterFailure(t *testing.T) {
	tc := gatewaystest.NewToolchain(t.TempDir()).Add("Foo.dmg", gatewaystest.ARM("Foo", "com.acme.foo", "1.0"))
	runner := tc.Install(gatewaystest.NewRunner())
	mounter := gateways.NewDiskImageMounter(runner, nil)

	boom := errors.New("boom")
	err := mounter.WithMountedImage(context.Background(), "/images/Foo.dmg", func(mountPoint string) error {
		assert.Len(t, tc.Mounted(), 1)
		assert.Equal(t, tc.Mounted()[0], mountPoint)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, tc.Mounted())
	assert.Len(t, runner.CallsTo("hdiutil"), 2)
}

func TestWithMountedImage_DetachFailureDoesNotMaskSuccess(t *testing.T) {
	runner := gatewaystest.NewRunner().Handle("hdiutil", func(cmd gateways.Command) *gateways.ExecuteResult {
		if cmd.Args[0] == "attach" {
			return gatewaystest.OK("/dev/disk9s1\tApple_HFS\t/Volumes/Foo\n")
		}
		return gatewaystest.Failed(16, "hdiutil: couldn't unmount disk9 - Resource busy")
	})

	called := false
	err := gateways.NewDiskImageMounter(runner, nil).WithMountedImage(context.Background(), "Foo.dmg", func(string) error {
		called = true
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, called)
}

func TestMountedImage_DetachOnce(t *testing.T) {
	tc := gatewaystest.NewToolchain(t.TempDir()).Add("Foo.dmg", gatewaystest.ARM("Foo", "com.acme.foo", "1.0"))
	runner := tc.Install(gatewaystest.NewRunner())

	mounted, err := gateways.NewDiskImageMounter(runner, nil).Attach(context.Background(), "Foo.dmg")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, mounted.Detach(ctx))
	assert.NoError(t, mounted.Detach(ctx))
	assert.Len(t, runner.CallsTo("hdiutil"), 2)
}

func TestAttach_Failure(t *testing.T) {
	runner := gatewaystest.NewRunner().Handle("hdiutil", func(gateways.Command) *gateways.ExecuteResult {
		return gatewaystest.Failed(1, "hdiutil: attach failed - image not recognized")
	})

	_, err := gateways.NewDiskImageMounter(runner, nil).Attach(context.Background(), "Broken.dmg")
	require.Error(t, err)
	assert.Equal(t, uerrors.KindExtractionFailed, uerrors.KindOf(err))
}

func TestWithMountedImage_UnparsableMountPointDetachesDevice(t *testing.T) {
	runner := gatewaystest.NewRunner().Handle("hdiutil", func(cmd gateways.Command) *gateways.ExecuteResult {
		if cmd.Args[0] == "attach" {
			return gatewaystest.OK("/dev/disk4\tGUID_partition_scheme\t\n/dev/disk4s1\tApple_HFS\t\n")
		}
		return gatewaystest.OK("\"disk4\" ejected.\n")
	})

	called := false
	err := gateways.NewDiskImageMounter(runner, nil).WithMountedImage(context.Background(), "/x/Foo.dmg", func(string) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.Equal(t, uerrors.KindExtractionFailed, uerrors.KindOf(err))
	assert.False(t, called)

	calls := runner.CallsTo("hdiutil")
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"detach", "/dev/disk4"}, calls[1].Args)
}

func TestAttach_UnparsableMountPointDetachFailureKeepsError(t *testing.T) {
	runner := gatewaystest.NewRunner().Handle("hdiutil", func(cmd gateways.Command) *gateways.ExecuteResult {
		if cmd.Args[0] == "attach" {
			return gatewaystest.OK("/dev/disk7s1\tApple_HFS\t\n")
		}
		return gatewaystest.Failed(16, "hdiutil: couldn't eject disk7 - Resource busy")
	})

	_, err := gateways.NewDiskImageMounter(runner, nil).Attach(context.Background(), "Foo.dmg")
	require.Error(t, err)
	assert.Equal(t, uerrors.KindExtractionFailed, uerrors.KindOf(err))
	assert.Len(t, runner.CallsTo("hdiutil"), 2)
}

func TestParseDeviceNode(t *testing.T) {
	device, ok := gateways.ParseDeviceNode("\n/dev/disk4          \tGUID_partition_scheme\t\n/dev/disk4s1\tApple_HFS\t/Volumes/Foo\n")
	assert.True(t, ok)
	assert.Equal(t, "/dev/disk4", device)

	_, ok = gateways.ParseDeviceNode("attached\n")
	assert.False(t, ok)
	_, ok = gateways.ParseDeviceNode("")
	assert.False(t, ok)
}
