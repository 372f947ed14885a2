//go:build windows

package runner

import "os/exec"

// killProcessGroup keeps the default cancellation, which kills only the
// direct child.
func killProcessGroup(cmd *exec.Cmd) {}
