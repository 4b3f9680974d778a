package dispatch

import (
	"os"
	"strconv"
	"time"
)

// Unix st_mode file type bits.
const (
	modeTypeSocket  = 0o140000
	modeTypeSymlink = 0o120000
	modeTypeRegular = 0o100000
	modeTypeBlock   = 0o060000
	modeTypeDir     = 0o040000
	modeTypeChar    = 0o020000
	modeTypeFifo    = 0o010000
)

// timeLayout is RFC 3339 in UTC with millisecond precision.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

type fileTimes struct {
	created  time.Time
	modified time.Time
	accessed time.Time
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func entryType(info os.FileInfo) string {
	if info.IsDir() {
		return typeDirectory
	}
	return typeFile
}

// formatMode renders m as the octal st_mode a stat(2) call would report, e.g. "100644".
func formatMode(m os.FileMode) string {
	return strconv.FormatUint(uint64(unixMode(m)), 8)
}

func unixMode(m os.FileMode) uint32 {
	mode := uint32(m.Perm())
	if m&os.ModeSetuid != 0 {
		mode |= 0o4000
	}
	if m&os.ModeSetgid != 0 {
		mode |= 0o2000
	}
	if m&os.ModeSticky != 0 {
		mode |= 0o1000
	}

	switch {
	case m&os.ModeDir != 0:
		mode |= modeTypeDir
	case m&os.ModeSymlink != 0:
		mode |= modeTypeSymlink
	case m&os.ModeNamedPipe != 0:
		mode |= modeTypeFifo
	case m&os.ModeSocket != 0:
		mode |= modeTypeSocket
	case m&os.ModeDevice != 0 && m&os.ModeCharDevice != 0:
		mode |= modeTypeChar
	case m&os.ModeDevice != 0:
		mode |= modeTypeBlock
	default:
		mode |= modeTypeRegular
	}
	return mode
}
