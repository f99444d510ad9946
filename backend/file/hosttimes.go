package file

import (
	times "gopkg.in/djherbis/times.v1"
)

// HostTimes describes the host filesystem's view of a backing image file:
// when it was last accessed, last changed, and (platform permitting) born.
// This is metadata about the container file on the operator's machine, not
// about any file inside the userfs image — the image format carries no
// timestamps of its own.
type HostTimes struct {
	ModTime    int64
	AccessTime int64
	ChangeTime int64
	BirthTime  int64
	HasBirth   bool
}

// StatHostTimes reads the host filesystem's timestamps for path.
func StatHostTimes(path string) (HostTimes, error) {
	t, err := times.Stat(path)
	if err != nil {
		return HostTimes{}, err
	}
	ht := HostTimes{
		ModTime:    t.ModTime().Unix(),
		AccessTime: t.AccessTime().Unix(),
		ChangeTime: t.ChangeTime().Unix(),
	}
	if t.HasBirthTime() {
		ht.HasBirth = true
		ht.BirthTime = t.BirthTime().Unix()
	}
	return ht, nil
}
