package schedules

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/teranos/cronstore/errors"
)

// File is the on-disk shape of a schedules file:
//
//	[[schedule]]
//	name = "hourly"
//	interval = "1h"        # or 3600, "@every 1h", "@hourly"
//	display = "Once Hourly"
type File struct {
	Schedule []FileEntry `toml:"schedule"`
}

// FileEntry is one [[schedule]] table.
type FileEntry struct {
	Name     string      `toml:"name"`
	Interval interface{} `toml:"interval"`
	Display  string      `toml:"display"`
}

// LoadFile reads a schedules file in declaration order.
func LoadFile(path string) ([]Schedule, error) {
	var f File
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read schedules file %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.Newf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return f.Schedules()
}

// Decode parses schedules from TOML text.
func Decode(data string) ([]Schedule, error) {
	var f File
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to decode schedules")
	}
	return f.Schedules()
}

// Schedules converts file entries, parsing each interval expression.
func (f File) Schedules() ([]Schedule, error) {
	out := make([]Schedule, 0, len(f.Schedule))
	for i, entry := range f.Schedule {
		if entry.Name == "" {
			return nil, errors.Newf("schedule #%d has no name", i+1)
		}
		interval, err := entryInterval(entry.Interval)
		if err != nil {
			return nil, errors.Wrapf(err, "schedule %q", entry.Name)
		}
		out = append(out, Schedule{Name: entry.Name, Interval: interval, Display: entry.Display})
	}
	return out, nil
}

func entryInterval(v interface{}) (int64, error) {
	switch iv := v.(type) {
	case int64:
		return positive(fmt.Sprint(iv), iv)
	case string:
		return ParseInterval(iv)
	case nil:
		return 0, errors.New("interval is required")
	default:
		return 0, errors.Newf("interval must be a number of seconds or a string, got %T", v)
	}
}
