package camera

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/nerrad567/ir-emitter/internal/process"
)

// fakeV4L builds a /dev-like tree: dev/video0, dev/video2 and a by-path
// directory linking to them.
func fakeV4L(t *testing.T) (devDir, byPath string) {
	t.Helper()

	devDir = t.TempDir()
	byPath = filepath.Join(devDir, "v4l", "by-path")
	require.NoError(t, os.MkdirAll(byPath, 0o755))

	for _, name := range []string{"video0", "video2"} {
		require.NoError(t, os.WriteFile(filepath.Join(devDir, name), nil, 0o600))
	}

	links := map[string]string{
		"pci-0000:00:14.0-usb-0:1:1.0-video-index0": "video0",
		"pci-0000:00:14.0-usb-0:2:1.0-video-index0": "video2",
	}
	for link, target := range links {
		require.NoError(t, os.Symlink(filepath.Join("..", "..", target), filepath.Join(byPath, link)))
	}

	return devDir, byPath
}

func TestResolver_Resolve(t *testing.T) {
	devDir, byPath := fakeV4L(t)
	r := NewResolver(byPath, nil)

	t.Run("video node", func(t *testing.T) {
		got, err := r.Resolve(filepath.Join(devDir, "video2"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(byPath, "pci-0000:00:14.0-usb-0:2:1.0-video-index0"), got)
	})

	t.Run("by-path name is kept", func(t *testing.T) {
		in := filepath.Join(byPath, "pci-0000:00:14.0-usb-0:1:1.0-video-index0")
		got, err := r.Resolve(in)
		require.NoError(t, err)
		assert.Equal(t, in, got)
	})

	t.Run("missing device", func(t *testing.T) {
		_, err := r.Resolve(filepath.Join(devDir, "video9"))
		assert.ErrorIs(t, err, ErrDeviceNotFound)
	})

	t.Run("device without by-path entry", func(t *testing.T) {
		orphan := filepath.Join(devDir, "video4")
		require.NoError(t, os.WriteFile(orphan, nil, 0o600))
		_, err := r.Resolve(orphan)
		assert.ErrorIs(t, err, ErrDeviceNotFound)
	})
}

func TestResolver_List(t *testing.T) {
	_, byPath := fakeV4L(t)

	devices, err := NewResolver(byPath, nil).List()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(byPath, "pci-0000:00:14.0-usb-0:1:1.0-video-index0"),
		filepath.Join(byPath, "pci-0000:00:14.0-usb-0:2:1.0-video-index0"),
	}, devices)

	devices, err = NewResolver(filepath.Join(t.TempDir(), "absent"), nil).List()
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestParseAttributeWalk(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "udevadm_video2.txt"))
	require.NoError(t, err)

	id, err := ParseAttributeWalk(string(data))
	require.NoError(t, err)
	assert.Equal(t, Identity{Kernels: "1-2:1.0", Index: 0}, id)
	assert.Equal(t, "1-2:1.0/0", id.String())
}

func TestParseAttributeWalk_Errors(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"empty", ""},
		{"no index", "  looking at device '/x':\n    KERNEL==\"video2\"\n"},
		{"bad index", "  looking at device '/x':\n    ATTR{index}==\"zero\"\n"},
		{"no usb parent", "  looking at device '/x':\n    ATTR{index}==\"1\"\n\n  looking at parent device '/y':\n    KERNELS==\"0000:00:14.0\"\n    SUBSYSTEMS==\"pci\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAttributeWalk(tt.output)
			assert.ErrorIs(t, err, ErrIdentityUnavailable)
		})
	}
}

func TestResolver_Identify(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "udevadm_video2.txt"))
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	runner := process.NewMockRunner(ctrl)
	runner.EXPECT().
		Run(gomock.Any(), process.MatchCommand("udevadm", "info", "--attribute-walk", "--name=/dev/video2")).
		Return(process.Result{Output: string(data)}, nil)

	id, err := NewResolver("/dev/v4l/by-path", runner).Identify(context.Background(), "/dev/video2")
	require.NoError(t, err)
	assert.Equal(t, Identity{Kernels: "1-2:1.0", Index: 0}, id)
}

func TestResolver_IdentifyFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := process.NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(process.Result{ExitCode: 4}, nil)

	_, err := NewResolver("/dev/v4l/by-path", runner).Identify(context.Background(), "/dev/video7")
	assert.ErrorIs(t, err, ErrIdentityUnavailable)
}

func TestIdentity_Less(t *testing.T) {
	a := Identity{Kernels: "1-2:1.0", Index: 0}
	b := Identity{Kernels: "1-2:1.0", Index: 2}
	c := Identity{Kernels: "1-3:1.0", Index: 0}

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))
}

func TestCheckCharDevice(t *testing.T) {
	regular := filepath.Join(t.TempDir(), "video0")
	require.NoError(t, os.WriteFile(regular, nil, 0o600))

	assert.ErrorIs(t, CheckCharDevice(regular), ErrNotCharDevice)
	assert.ErrorIs(t, CheckCharDevice(filepath.Join(t.TempDir(), "absent")), ErrDeviceNotFound)

	if _, err := os.Stat("/dev/null"); err == nil {
		assert.NoError(t, CheckCharDevice("/dev/null"))
		assert.True(t, IsCharDevice("/dev/null"))
	}
}
