package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/ulikunitz/xz"

	"fpl-cache-api/internal/snapshot"
)

// Decompression modes.
const (
	ModeNative = "native"
	ModeExec   = "exec"
	ModeAuto   = "auto"
)

// ErrXZNotFound is returned when the external xz executable is required but
// not on PATH.
var ErrXZNotFound = errors.New("xz executable not found (install xz-utils)")

// Decompressor turns an archived .json.xz payload back into JSON bytes.
type Decompressor struct {
	Mode   string // native|exec|auto
	XZPath string // executable used by exec/auto, default "xz"
}

func (d Decompressor) Decompress(ctx context.Context, compressed []byte) ([]byte, error) {
	switch d.Mode {
	case ModeExec:
		return d.execXZ(ctx, compressed)
	case ModeAuto:
		out, err := nativeXZ(compressed)
		if err == nil {
			return out, nil
		}
		fallback, ferr := d.execXZ(ctx, compressed)
		if ferr != nil {
			if errors.Is(ferr, ErrXZNotFound) {
				return nil, err
			}
			return nil, ferr
		}
		return fallback, nil
	default:
		return nativeXZ(compressed)
	}
}

func nativeXZ(compressed []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: xz header: %v", snapshot.ErrMalformed, err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: xz stream: %v", snapshot.ErrMalformed, err)
	}
	return out, nil
}

func (d Decompressor) execXZ(ctx context.Context, compressed []byte) ([]byte, error) {
	bin := d.XZPath
	if bin == "" {
		bin = "xz"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, ErrXZNotFound
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-dc")
	cmd.Stdin = bytes.NewReader(compressed)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: xz -dc: %v: %s", snapshot.ErrMalformed, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}
