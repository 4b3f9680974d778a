package dispatch

import (
	"os"
	"syscall"
	"time"
)

// fileTimesOf reads atime and ctime from the stat result. Linux stat(2) has no birth time,
// so ctime stands in for it.
func fileTimesOf(info os.FileInfo) fileTimes {
	t := fileTimes{created: info.ModTime(), modified: info.ModTime(), accessed: info.ModTime()}
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		t.accessed = time.Unix(st.Atim.Unix())
		t.created = time.Unix(st.Ctim.Unix())
	}
	return t
}
