package dispatch

import (
	"os"
	"syscall"
	"time"
)

func fileTimesOf(info os.FileInfo) fileTimes {
	t := fileTimes{created: info.ModTime(), modified: info.ModTime(), accessed: info.ModTime()}
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		t.accessed = time.Unix(st.Atimespec.Unix())
		t.created = time.Unix(st.Birthtimespec.Unix())
	}
	return t
}
