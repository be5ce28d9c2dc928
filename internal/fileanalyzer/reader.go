package fileanalyzer

import (
	"os"
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/compiletools/ctdeps/internal/common"
)

// ReadStrategy selects how file bytes are obtained, per spec.md §4.1.1.
type ReadStrategy int

const (
	// StrategyAuto lets SelectStrategy pick mmap/no-mmap/fd-safe based on the
	// process's open-fd limit; this is the default absent an override flag.
	StrategyAuto ReadStrategy = iota
	StrategyMmap
	StrategyNoMmap
	StrategyFDSafe
)

// fdSafeRlimitThreshold is the open-fd ceiling below which reads fall back
// to bounded, synchronous, immediately-closed reads (spec.md §4.1.1's
// "Open-fd limit < 100" row).
const fdSafeRlimitThreshold = 100

// SelectStrategy inspects the process's open-file-descriptor limit (via
// RLIMIT_NOFILE) and returns the strategy analyze should use absent an
// explicit override. Non-Linux/unsupported platforms fall back to no-mmap,
// since mmap safety on arbitrary filesystems cannot be assumed there.
func SelectStrategy() ReadStrategy {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		return StrategyNoMmap
	}

	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlim); err != nil {
		return StrategyNoMmap
	}
	if rlim.Cur < fdSafeRlimitThreshold {
		return StrategyFDSafe
	}
	return StrategyMmap
}

// readFileBytes obtains up to maxReadSize bytes of path's contents using the
// given strategy, reporting whether the result was truncated. Every file
// descriptor opened here is closed before returning: no handle survives
// beyond this call (spec.md §4.4's "Resource ownership" note, applied at the
// analyzer's own read boundary).
func readFileBytes(path string, strategy ReadStrategy, maxReadSize int64) ([]byte, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, common.Wrapf(common.ErrFileMissing, "%s", path)
		}
		return nil, false, common.Wrapf(common.ErrFileMissing, "opening %s: %v", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, false, common.Wrapf(common.ErrFileMissing, "stat %s: %v", path, err)
	}
	size := info.Size()
	if size == 0 {
		// Mapping zero bytes is an error on some platforms; no strategy needs it.
		return []byte{}, false, nil
	}

	readSize := size
	truncated := false
	if maxReadSize > 0 && size > maxReadSize {
		readSize = maxReadSize
		truncated = true
	}

	switch strategy {
	case StrategyMmap:
		data, err := unix.Mmap(int(f.Fd()), 0, int(readSize), unix.PROT_READ, unix.MAP_SHARED)
		if err != nil {
			// Fall back to a plain read rather than failing the whole analysis;
			// some filesystems reject mmap even when fd limits are generous.
			return readIntoBuffer(f, readSize, truncated)
		}
		out := make([]byte, len(data))
		copy(out, data)
		_ = unix.Munmap(data)
		return out, truncated, nil

	case StrategyFDSafe, StrategyNoMmap, StrategyAuto:
		return readIntoBuffer(f, readSize, truncated)

	default:
		return readIntoBuffer(f, readSize, truncated)
	}
}

func readIntoBuffer(f *os.File, readSize int64, truncated bool) ([]byte, bool, error) {
	buf := make([]byte, readSize)
	n, err := f.ReadAt(buf, 0)
	if err != nil && n == 0 {
		return nil, false, common.Wrapf(common.ErrFileMissing, "reading: %v", err)
	}
	return buf[:n], truncated, nil
}
