//go:build !linux && !darwin

package dispatch

import "os"

func fileTimesOf(info os.FileInfo) fileTimes {
	return fileTimes{created: info.ModTime(), modified: info.ModTime(), accessed: info.ModTime()}
}
