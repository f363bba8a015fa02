//go:build windows

package repolock

import "os"

// pidAlive on Windows: os.FindProcess always succeeds regardless of
// liveness, so there is no portable zero-signal probe here. We fall back to
// "assume alive", matching the foreign-host liveness policy -- staleness on
// Windows is then driven purely by startedAt + staleTTL.
func pidAlive(pid int) bool {
	_, err := os.FindProcess(pid)
	return err == nil
}
