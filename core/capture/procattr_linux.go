package capture

import "syscall"

// sysProcAttr puts the capture child in its own process group so the whole
// group can be killed at once. Pdeathsig is a Linux-only safety net: if the
// supervisor dies unexpectedly, the kernel sends SIGTERM to the child, so no
// recording process outlives its supervisor.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}
