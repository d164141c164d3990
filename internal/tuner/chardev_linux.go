// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux

package tuner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ManuGH/tsrec/internal/channel"
	"github.com/ManuGH/tsrec/internal/diagnose"
	"github.com/ManuGH/tsrec/internal/log"
)

// PT-series chardev ioctls (magic 0x8D).
const (
	ioctlSetChannel        = 0x40088D01 // _IOW(0x8D, 1, struct frequency)
	ioctlStartRec          = 0x00008D02 // _IO(0x8D, 2)
	ioctlStopRec           = 0x00008D03 // _IO(0x8D, 3)
	ioctlGetSignalStrength = 0x80088D04 // _IOR(0x8D, 4, int *)
	ioctlLNBEnable         = 0x40048D05 // _IOW(0x8D, 5, int)
	ioctlLNBDisable        = 0x00008D06 // _IO(0x8D, 6)
)

// frequency mirrors the driver's struct { int frequencyno; int slot; }.
type frequency struct {
	no   int32
	slot int32
}

// Chardev drives PT1/PT2/PT3-style character devices such as /dev/pt3video0.
type Chardev struct{}

func (Chardev) Open(ctx context.Context, path string, ch channel.Spec, lnb LNB) (Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	freq, err := ch.Frequency()
	if err != nil {
		return nil, diagnose.Wrap(diagnose.DomainTune, unix.EINVAL)
	}

	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, diagnose.Wrap(diagnose.DomainDevice, err)
	}

	d := &chardev{f: f, fd: int(f.Fd()), ch: ch}
	logger := log.WithComponent("tuner")

	if ch.Type.Satellite() && lnb != LNBOff {
		if err := unix.IoctlSetInt(d.fd, ioctlLNBEnable, lnbArg(lnb)); err != nil {
			_ = f.Close()
			return nil, diagnose.Wrap(diagnose.DomainTune, os.NewSyscallError("ioctl LNB_ENABLE", err))
		}
		d.lnb = true
	}

	fr := frequency{no: int32(freq.No), slot: int32(freq.Slot)}
	if err := ioctlPtr(d.fd, ioctlSetChannel, unsafe.Pointer(&fr)); err != nil {
		_ = d.release()
		return nil, diagnose.Wrap(diagnose.DomainTune, os.NewSyscallError("ioctl SET_CHANNEL", err))
	}

	if err := unix.IoctlSetInt(d.fd, ioctlStartRec, 0); err != nil {
		_ = d.release()
		return nil, diagnose.Wrap(diagnose.DomainTune, os.NewSyscallError("ioctl START_REC", err))
	}
	d.recording = true

	logger.Debug().
		Str(log.FieldEvent, "tuner.tuned").
		Str(log.FieldDevice, path).
		Str(log.FieldChannel, ch.Raw).
		Int("frequency_no", freq.No).
		Int("slot", freq.Slot).
		Str(log.FieldLNB, lnb.String()).
		Msg("tuner tuned")
	return d, nil
}

type chardev struct {
	f         *os.File
	fd        int
	ch        channel.Spec
	lnb       bool
	recording bool
}

func (d *chardev) Read(p []byte) (int, error) {
	return d.f.Read(p)
}

func (d *chardev) SignalQuality() (float64, error) {
	raw, err := unix.IoctlGetInt(d.fd, ioctlGetSignalStrength)
	if err != nil {
		return 0, os.NewSyscallError("ioctl GET_SIGNAL_STRENGTH", err)
	}
	return CNR(d.ch.Type, int64(raw)), nil
}

func (d *chardev) Close() error {
	return d.release()
}

func (d *chardev) release() error {
	var errs []error
	if d.recording {
		if err := unix.IoctlSetInt(d.fd, ioctlStopRec, 0); err != nil {
			errs = append(errs, fmt.Errorf("stop recording: %w", err))
		}
		d.recording = false
	}
	if d.lnb {
		if err := unix.IoctlSetInt(d.fd, ioctlLNBDisable, 0); err != nil {
			errs = append(errs, fmt.Errorf("disable LNB: %w", err))
		}
		d.lnb = false
	}
	if err := d.f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func lnbArg(l LNB) int {
	if l == LNB15V {
		return 2
	}
	return 1
}

func ioctlPtr(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
