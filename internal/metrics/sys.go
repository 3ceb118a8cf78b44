package metrics

import (
	"io/fs"
	"path/filepath"
	"runtime"

	"github.com/dustin/go-humanize"
)

// SysHealth is a point-in-time view of the process and its data directory.
type SysHealth struct {
	AllocMB       uint64
	SysMB         uint64
	NumGC         uint32
	Goroutines    int
	DataDiskBytes int64
	DataDiskSize  string
}

// GetSysHealth reads runtime memory stats and sums the files under dataPath.
// An unreadable data directory reports zero bytes.
func GetSysHealth(dataPath string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	size := dirSize(dataPath)
	return SysHealth{
		AllocMB:       m.Alloc / 1024 / 1024,
		SysMB:         m.Sys / 1024 / 1024,
		NumGC:         m.NumGC,
		Goroutines:    runtime.NumGoroutine(),
		DataDiskBytes: size,
		DataDiskSize:  humanize.IBytes(uint64(size)),
	}
}

func dirSize(root string) int64 {
	var size int64
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size
}
