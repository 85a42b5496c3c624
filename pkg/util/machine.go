package util

import (
	"os"
	"strings"
	"sync"

	"github.com/denisbrodbeck/machineid"
)

var (
	machineID      string
	machineIDMutex sync.Mutex
)

// GetMachineID returns a stable identifier for the current machine.
// Used as the export envelope source tag so a pulled envelope can be
// traced back to the device that produced it. Falls back to the
// hostname when the platform machine id is unavailable.
func GetMachineID() string {
	machineIDMutex.Lock()
	defer machineIDMutex.Unlock()

	if machineID != "" {
		return machineID
	}

	if id, err := machineid.ProtectedID("anchored-sync-service"); err == nil && id != "" {
		machineID = id
		return machineID
	}

	if host, err := os.Hostname(); err == nil && host != "" {
		machineID = strings.ToLower(host)
		return machineID
	}

	return ""
}
