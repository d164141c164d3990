// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package diagnose

import "golang.org/x/sys/unix"

const (
	MsgChannelNotReceivable = "Channel selection failed. The channel may not be received."
	MsgChannelInvalid       = "The specified channel is invalid."
	MsgDeviceInUse          = "The tuner device is already in use."
)

func init() {
	Register(
		Rule{Domain: DomainTune, Code: unix.EAGAIN, Message: MsgChannelNotReceivable},
		Rule{Domain: DomainTune, Code: unix.EINVAL, Message: MsgChannelInvalid},
		Rule{Domain: DomainDevice, Code: unix.EALREADY, Message: MsgDeviceInUse},
		// chardev drivers report a second open as EBUSY
		Rule{Domain: DomainDevice, Code: unix.EBUSY, Message: MsgDeviceInUse},
	)
}
