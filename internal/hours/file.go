package hours

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML shape of a schedule override file.
//
//	timezone: America/Sao_Paulo
//	days:
//	  saturday: {open: "09:00", close: "13:00"}
//	  sunday: {closed: true}
//
// Days that are not listed keep the default window.
type FileConfig struct {
	Timezone string                `yaml:"timezone"`
	Days     map[string]*DayConfig `yaml:"days"`
}

// DayConfig describes one weekday.
type DayConfig struct {
	Open   string `yaml:"open"`
	Close  string `yaml:"close"`
	Closed bool   `yaml:"closed"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Load builds the schedule from a timezone name and an optional override file.
// The file's timezone, when set, wins over tz.
func Load(tz, path string) (*Schedule, error) {
	var fc *FileConfig
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read business hours file %s: %w", path, err)
		}
		fc = &FileConfig{}
		if err := yaml.Unmarshal(b, fc); err != nil {
			return nil, fmt.Errorf("parse business hours file %s: %w", path, err)
		}
		if fc.Timezone != "" {
			tz = fc.Timezone
		}
	}

	loc, err := LoadLocation(tz)
	if err != nil {
		return nil, err
	}

	s := Default(loc)
	if fc == nil {
		return s, nil
	}
	if err := fc.apply(s); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadLocation resolves a timezone name; empty means UTC.
func LoadLocation(tz string) (*time.Location, error) {
	if strings.TrimSpace(tz) == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid business timezone %q: %w", tz, err)
	}
	return loc, nil
}

func (fc *FileConfig) apply(s *Schedule) error {
	for name, day := range fc.Days {
		wd, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return fmt.Errorf("unknown weekday %q", name)
		}
		if day == nil || day.Closed {
			_ = s.SetWindow(wd, nil)
			continue
		}
		open, err := parseClock(day.Open)
		if err != nil {
			return fmt.Errorf("%s open: %w", name, err)
		}
		closeAt, err := parseClock(day.Close)
		if err != nil {
			return fmt.Errorf("%s close: %w", name, err)
		}
		if err := s.SetWindow(wd, &Window{Open: open, Close: closeAt}); err != nil {
			return err
		}
	}
	return nil
}

// parseClock parses "HH:MM" into minutes since midnight. "24:00" is allowed as an end of day.
func parseClock(v string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock %q", v)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid clock %q", v)
	}
	return h*60 + m, nil
}
