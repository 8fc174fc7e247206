// Package platform describes the machine a resolution runs against. The
// Descriptor is an immutable snapshot of local facts, captured once at
// startup; conditions in build documents are matched against it and never
// against live system state.
package platform

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
)

// Descriptor holds the facts about the local machine that build document
// conditions may reference. All fields are plain lowercase strings; empty
// means the fact could not be determined.
type Descriptor struct {
	Platform string
	Distro   string
	Hostname string
	Arch     string
}

// Overrides replaces individual detected fields, typically from CLI flags.
// Empty fields keep the detected value.
type Overrides struct {
	Platform string
	Distro   string
	Hostname string
	Arch     string
}

// Detect builds a Descriptor for the running machine, applying any
// non-empty overrides on top of the detected values.
func Detect(ov Overrides) Descriptor {
	d := Descriptor{
		Platform: detectPlatform(),
		Distro:   detectDistro(),
		Hostname: detectHostname(),
		Arch:     runtime.GOARCH,
	}
	if ov.Platform != "" {
		d.Platform = ov.Platform
	}
	if ov.Distro != "" {
		d.Distro = ov.Distro
	}
	if ov.Hostname != "" {
		d.Hostname = ov.Hostname
	}
	if ov.Arch != "" {
		d.Arch = ov.Arch
	}
	return d
}

func detectPlatform() string {
	// Document conditions use the conventional family names, not GOOS.
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	default:
		return runtime.GOOS
	}
}

func detectHostname() string {
	name, err := os.Hostname()
	if err != nil {
		return ""
	}
	return strings.ToLower(name)
}

// detectDistro reads the distribution ID from os-release on Linux. Other
// platforms have no distro and report an empty string.
func detectDistro() string {
	if runtime.GOOS != "linux" {
		return ""
	}
	data, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		value, found := strings.CutPrefix(line, "ID=")
		if !found {
			continue
		}
		return strings.ToLower(strings.Trim(strings.TrimSpace(value), `"`))
	}
	return ""
}

// Condition is a partial predicate over Descriptor fields, as declared in a
// build document. Absent fields are wildcards. A nil Condition is the
// "default" pseudo-condition and always matches.
type Condition map[string]string

// conditionFields are the Descriptor fields a Condition may reference.
var conditionFields = map[string]func(Descriptor) string{
	"platform": func(d Descriptor) string { return d.Platform },
	"distro":   func(d Descriptor) string { return d.Distro },
	"hostname": func(d Descriptor) string { return d.Hostname },
	"arch":     func(d Descriptor) string { return d.Arch },
}

// Matches reports whether every field the condition specifies equals the
// corresponding Descriptor field. A field name outside the Descriptor's
// vocabulary is an error; the loader normally rejects these, but the
// evaluator must not silently ignore one that slips through.
func (c Condition) Matches(d Descriptor) (bool, error) {
	keys := make([]string, 0, len(c))
	for key := range c {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		get, ok := conditionFields[key]
		if !ok {
			return false, fmt.Errorf("condition references unknown field %q", key)
		}
		if c[key] != get(d) {
			return false, nil
		}
	}
	return true, nil
}
