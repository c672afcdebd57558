package measurement

import (
	"os"
	"runtime"
	"strings"
)

const (
	localeField    = "locale"
	osField        = "os"
	osVersionField = "osversion"
	archField      = "arch"

	osReleasePath = "/proc/sys/kernel/osrelease"

	unknownValue = "unknown"
	// und is the BCP 47 tag for an undetermined locale.
	undeterminedLocale = "und"
)

// Locale reports the process locale derived from the environment, as a
// BCP 47 style tag ("en-US").
type Locale struct{}

func NewLocale() *Locale {
	return &Locale{}
}

func (*Locale) Field() string {
	return localeField
}

func (*Locale) Flush() (any, error) {
	return currentLocale(), nil
}

func currentLocale() string {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		value := os.Getenv(name)
		if value == "" || value == "C" || value == "POSIX" {
			continue
		}
		// "en_US.UTF-8" -> "en-US"
		if i := strings.IndexAny(value, ".@"); i >= 0 {
			value = value[:i]
		}

		return strings.ReplaceAll(value, "_", "-")
	}

	return undeterminedLocale
}

// OperatingSystem reports the platform name.
type OperatingSystem struct{}

func NewOperatingSystem() *OperatingSystem {
	return &OperatingSystem{}
}

func (*OperatingSystem) Field() string {
	return osField
}

func (*OperatingSystem) Flush() (any, error) {
	return runtime.GOOS, nil
}

// OperatingSystemVersion reports the kernel release, read once at
// construction.
type OperatingSystemVersion struct {
	version string
}

func NewOperatingSystemVersion() *OperatingSystemVersion {
	version := unknownValue
	if raw, err := os.ReadFile(osReleasePath); err == nil {
		if v := strings.TrimSpace(string(raw)); v != "" {
			version = v
		}
	}

	return &OperatingSystemVersion{version: version}
}

func (*OperatingSystemVersion) Field() string {
	return osVersionField
}

func (m *OperatingSystemVersion) Flush() (any, error) {
	return m.version, nil
}

// Architecture reports the processor architecture.
type Architecture struct{}

func NewArchitecture() *Architecture {
	return &Architecture{}
}

func (*Architecture) Field() string {
	return archField
}

func (*Architecture) Flush() (any, error) {
	return runtime.GOARCH, nil
}
