package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// NewSessionDir creates a fresh timestamped directory under baseDir and a
// "programOut.log" file inside it, returning the log file's path for use
// as a launch/attach request's logFile argument. Generalizes
// tiffon-nvlv/svr/fs.go's getSsnSpace: same timestamped-directory-with-
// numeric-suffix-on-collision scheme, but serving the per-session
// logFile argument from the debug session's launch/attach arguments
// instead of a fixed dev workspace the teacher's single hardcoded server
// instance used.
func NewSessionDir(baseDir string) (dir, logFile string, err error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", "", fmt.Errorf("config: create session base dir: %w", err)
	}

	stamp := time.Now().Format("2006-01-02T15_04_05Z07_00")
	dir = filepath.Join(baseDir, stamp)

	const maxAttempts = 10
	candidate := dir + "__0"
	err = os.Mkdir(candidate, 0o755)
	for i := 1; os.IsExist(err) && i < maxAttempts; i++ {
		candidate = fmt.Sprintf("%s__%d", dir, i)
		err = os.Mkdir(candidate, 0o755)
	}
	if err != nil {
		return "", "", fmt.Errorf("config: create session dir: %w", err)
	}
	dir = candidate

	logFile = filepath.Join(dir, "programOut.log")
	f, err := os.Create(logFile)
	if err != nil {
		return "", "", fmt.Errorf("config: create session log file: %w", err)
	}
	_ = f.Close()

	return dir, logFile, nil
}
