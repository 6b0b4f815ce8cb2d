// internal/bridge/filebridge.go
package bridge

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// File fallback channel layout. Names are shared with the simulator-side
// companion script and MUST NOT change.
const (
	targetFileName = "target_lod.txt"
	modeFileName   = "mode.txt"
	statusFileName = "status.txt"
)

// writeFileChannel mirrors one command's effect into the shared directory.
// SET_LOD updates the target file; session commands update the mode file.
func writeFileChannel(dir, verb string, value float64, now time.Time) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("file bridge: create dir: %w", err)
	}

	switch verb {
	case cmdSetLOD:
		return atomicWrite(
			filepath.Join(dir, targetFileName),
			[]byte(strconv.FormatFloat(value, 'f', 3, 64)+"\n"),
		)
	case cmdEnable:
		return atomicWrite(filepath.Join(dir, modeFileName), []byte("ENABLED=1\n"))
	case cmdDisable:
		return atomicWrite(filepath.Join(dir, modeFileName), []byte("ENABLED=0\n"))
	case cmdPing:
		line := fmt.Sprintf("PING=%d\n", now.Unix())
		return atomicWrite(filepath.Join(dir, modeFileName), []byte(line))
	default:
		return fmt.Errorf("file bridge: unknown command %q", verb)
	}
}

// atomicWrite never leaves a half-written file for the remote reader:
// write to a temp name, then rename over the target.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("file bridge: write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("file bridge: rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadFileStatus parses the remote-written status file.
// A missing file is not an error: the remote side simply has not written
// yet. Malformed lines are skipped.
func ReadFileStatus(dir string) (*FileStatus, error) {
	path := filepath.Join(dir, statusFileName)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("file bridge: stat status file: %w", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("file bridge: read status file: %w", err)
	}

	st := &FileStatus{FileModifiedAt: info.ModTime()}

	for _, line := range strings.Split(string(raw), "\n") {
		key, val, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)

		switch key {
		case "enabled":
			if b, ok := parseBoolish(val); ok {
				st.Enabled = &b
			}
		case "current_lod":
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				st.CurrentLOD = &f
			}
		case "target_lod":
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				st.TargetLOD = &f
			}
		case "tier":
			st.Tier = val
		case "last_update_epoch":
			if sec, err := strconv.ParseInt(val, 10, 64); err == nil {
				st.LastUpdateAt = time.Unix(sec, 0)
			}
		}
	}

	// The remote script may omit the epoch; its write time is the next
	// best signal.
	if st.LastUpdateAt.IsZero() {
		st.LastUpdateAt = st.FileModifiedAt
	}

	return st, nil
}

func parseBoolish(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true, true
	case "0", "false", "no":
		return false, true
	default:
		return false, false
	}
}
