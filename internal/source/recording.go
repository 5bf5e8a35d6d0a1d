// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"spectro/internal/log"
)

// recordingPrefix keys recording files to the worker that wrote them.
// Stale files from prior runs are matched by this naming convention.
const recordingPrefix = "tempwav_"

// RecordingPath returns the recording file path for the given worker ID.
func RecordingPath(dir string, id int) string {
	return filepath.Join(dir, fmt.Sprintf("%s%d.wav", recordingPrefix, id))
}

// SweepStaleRecordings removes recordings left behind by prior runs,
// matched by the tempwav_*.wav naming convention. Returns the number of
// files removed. A missing directory is not an error.
func SweepStaleRecordings(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read recording dir %s: %w", dir, err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if !strings.HasPrefix(name, recordingPrefix) || !strings.HasSuffix(name, ".wav") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Warnf("source: failed to remove stale recording %s: %v", path, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Infof("source: removed %d stale recording(s) from %s", removed, dir)
	}
	return removed, nil
}
