package snapshot

import (
	"bytes"
	"context"
	"log/slog"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vhugoxx/backup-app/internal/errors"
)

const createOutput = `vssadmin 1.1 - Volume Shadow Copy Service administrative command-line tool
(C) Copyright 2001-2013 Microsoft Corp.

Successfully created shadow copy for 'D:\'
    Shadow Copy ID: {3f1c2d4e-aaaa-bbbb-cccc-0123456789ab}
    Shadow Copy Volume: \\?\GLOBALROOT\Device\HarddiskVolumeShadowCopy12
`

// fakeRunner answers commands from a table keyed by "name arg0 ...".
type fakeRunner struct {
	outputs map[string]string
	calls   []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	key := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, key)
	out, ok := f.outputs[key]
	if !ok {
		return nil, errors.Newf("unexpected command %q", key)
	}
	return []byte(out), nil
}

func healthyRunner() *fakeRunner {
	out := map[string]string{}
	out["sc query vss"] = "SERVICE_NAME: vss\n        STATE              : 4  RUNNING\n"
	out["vssadmin list volumes"] = "Volume path: C:\\\nVolume path: D:\\\n"
	out["fsutil fsinfo volumeinfo D:"] = "Volume Name : Data\nFile System Name : NTFS\n"
	out["vssadmin create shadow /for=D:"] = createOutput
	out["vssadmin delete shadows /shadow={3f1c2d4e-aaaa-bbbb-cccc-0123456789ab} /quiet"] = "Deleted"
	return &fakeRunner{outputs: out}
}

func newTestProvider(r Runner, elevated bool) *VSSProvider {
	return NewVSSProvider(
		WithRunner(r),
		WithElevation(func() bool { return elevated }),
		WithGOOS("windows"),
	)
}

func TestCheckPrerequisites(t *testing.T) {
	tests := []struct {
		name     string
		elevated bool
		patch    map[string]string
		wantOK   bool
		reason   string
	}{
		{name: "all good", elevated: true, wantOK: true, reason: "VSS ready"},
		{name: "not elevated", elevated: false, reason: "administrator"},
		{name: "no service", elevated: true, patch: map[string]string{"sc query vss": "OpenService FAILED 1060"}, reason: "unavailable"},
		{name: "stopped", elevated: true, patch: map[string]string{"sc query vss": "STATE : 1 STOPPED"}, reason: "stopped"},
		{name: "unknown state", elevated: true, patch: map[string]string{"sc query vss": "STATE : 2 START_PENDING"}, reason: "unknown state"},
		{name: "volume not listed", elevated: true, patch: map[string]string{"vssadmin list volumes": "Volume path: C:\\\n"}, reason: "not eligible"},
		{name: "fat32", elevated: true, patch: map[string]string{"fsutil fsinfo volumeinfo D:": "File System Name : FAT32\n"}, reason: "FAT32"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := healthyRunner()
			for k, v := range tt.patch {
				r.outputs[k] = v
			}
			ok, reason := newTestProvider(r, tt.elevated).CheckPrerequisites(t.Context(), "D:")
			assert.Equal(t, tt.wantOK, ok)
			assert.Contains(t, reason, tt.reason)
		})
	}
}

func TestCheckPrerequisites_ShortCircuits(t *testing.T) {
	r := healthyRunner()
	ok, _ := newTestProvider(r, false).CheckPrerequisites(t.Context(), "D:")
	assert.False(t, ok)
	assert.Empty(t, r.calls)
}

func TestCheckPrerequisites_NonWindows(t *testing.T) {
	p := NewVSSProvider(WithRunner(healthyRunner()), WithGOOS("linux"))
	ok, reason := p.CheckPrerequisites(t.Context(), "D:")
	assert.False(t, ok)
	assert.Contains(t, reason, "Windows")
}

func TestCreate(t *testing.T) {
	snap, err := newTestProvider(healthyRunner(), true).Create(t.Context(), "D:")
	require.NoError(t, err)
	assert.Equal(t, "{3f1c2d4e-aaaa-bbbb-cccc-0123456789ab}", snap.ID)
	assert.Equal(t, `\\?\GLOBALROOT\Device\HarddiskVolumeShadowCopy12`, snap.DevicePath)
	assert.Equal(t, "D:", snap.Volume)
}

func TestCreate_MissingMarkers(t *testing.T) {
	r := healthyRunner()
	r.outputs["vssadmin create shadow /for=D:"] = "Error: Access is denied."
	snap, err := newTestProvider(r, true).Create(t.Context(), "D:")
	assert.Nil(t, snap)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCreateFailed))
	assert.Contains(t, err.Error(), "Access is denied")
}

func TestDelete(t *testing.T) {
	r := healthyRunner()
	p := newTestProvider(r, true)

	p.Delete(t.Context(), nil)
	assert.Empty(t, r.calls)

	snap, err := p.Create(t.Context(), "D:")
	require.NoError(t, err)
	p.Delete(t.Context(), snap)
	assert.Equal(t, "vssadmin delete shadows /shadow={3f1c2d4e-aaaa-bbbb-cccc-0123456789ab} /quiet", r.calls[len(r.calls)-1])

	// Failures are swallowed.
	delete(r.outputs, "vssadmin delete shadows /shadow={3f1c2d4e-aaaa-bbbb-cccc-0123456789ab} /quiet")
	p.Delete(t.Context(), snap)
}

func TestNullProvider(t *testing.T) {
	var p Provider = NullProvider{}
	ok, reason := p.CheckPrerequisites(t.Context(), "D:")
	assert.False(t, ok)
	assert.NotEmpty(t, reason)

	snap, err := p.Create(t.Context(), "D:")
	assert.Nil(t, snap)
	assert.True(t, errors.Is(err, ErrCreateFailed))
	p.Delete(t.Context(), nil)
}

func TestTranslate(t *testing.T) {
	snap := &Snapshot{ID: "{x}", DevicePath: `\\?\GLOBALROOT\Device\HarddiskVolumeShadowCopy3`, Volume: "D:"}
	tests := []struct {
		in   string
		want string
	}{
		{`D:\Photos\2024`, `\\?\GLOBALROOT\Device\HarddiskVolumeShadowCopy3\Photos\2024`},
		{`d:\x.jpg`, `\\?\GLOBALROOT\Device\HarddiskVolumeShadowCopy3\x.jpg`},
		{`D:`, `\\?\GLOBALROOT\Device\HarddiskVolumeShadowCopy3\`},
		{`C:\other`, `C:\other`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, snap.Translate(tt.in))
		})
	}

	var none *Snapshot
	assert.Equal(t, `D:\a`, none.Translate(`D:\a`))
}

func TestVolumeOf(t *testing.T) {
	assert.Equal(t, "D:", VolumeOf(`d:\data`))
	assert.Equal(t, "C:", VolumeOf("C:"))
	assert.Empty(t, VolumeOf("/home/user"))
	assert.Empty(t, VolumeOf(`\\server\share`))
	assert.Empty(t, VolumeOf("1:"))
}

func TestVSSProvider_LogsToolFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := healthyRunner()
	delete(r.outputs, "sc query vss")

	p := NewVSSProvider(
		WithRunner(r),
		WithElevation(func() bool { return true }),
		WithGOOS("windows"),
		WithLogger(logger),
	)
	ok, _ := p.CheckPrerequisites(t.Context(), "D:")
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "snapshot tool failed")
	assert.Contains(t, buf.String(), "cmd=sc")
}

func TestDefault(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	p := Default(logger)
	if runtime.GOOS != "windows" {
		assert.Equal(t, NullProvider{}, p)
		return
	}
	vss, ok := p.(*VSSProvider)
	require.True(t, ok, "Default returned %T", p)
	assert.Same(t, logger, vss.logger)
	assert.NotNil(t, Default(nil).(*VSSProvider).logger)
}
