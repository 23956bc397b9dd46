// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pep

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// PythonVersion identifies a Python interpreter version. Micro is -1 when
// only major.minor is known. Pre carries an optional pre-release tag such
// as "rc1", used verbatim in python_full_version.
type PythonVersion struct {
	Major int
	Minor int
	Micro int
	Pre   string
}

// ParsePythonVersion parses "3.12" or "3.12.4" forms. A major.minor prefix
// is the minimum accepted.
func ParsePythonVersion(s string) (PythonVersion, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) < 2 || len(parts) > 3 {
		return PythonVersion{}, &VersionParseError{Input: s, Reason: "python version needs major.minor or major.minor.micro"}
	}
	pv := PythonVersion{Micro: -1}
	var err error
	if pv.Major, err = strconv.Atoi(parts[0]); err != nil {
		return PythonVersion{}, &VersionParseError{Input: s, Reason: "non-numeric major version"}
	}
	if pv.Minor, err = strconv.Atoi(parts[1]); err != nil {
		return PythonVersion{}, &VersionParseError{Input: s, Reason: "non-numeric minor version"}
	}
	if len(parts) == 3 {
		micro := parts[2]
		if i := strings.IndexAny(micro, "abcr"); i > 0 {
			pv.Pre = micro[i:]
			micro = micro[:i]
		}
		if pv.Micro, err = strconv.Atoi(micro); err != nil {
			return PythonVersion{}, &VersionParseError{Input: s, Reason: "non-numeric micro version"}
		}
	}
	return pv, nil
}

// MajorMinor returns the truncated "X.Y" form used by the python_version
// marker variable.
func (pv PythonVersion) MajorMinor() string {
	return fmt.Sprintf("%d.%d", pv.Major, pv.Minor)
}

// Full returns the "X.Y.Z" form used by python_full_version, with a
// missing micro defaulted to zero.
func (pv PythonVersion) Full() string {
	micro := pv.Micro
	if micro < 0 {
		micro = 0
	}
	return fmt.Sprintf("%d.%d.%d%s", pv.Major, pv.Minor, micro, pv.Pre)
}

func (pv PythonVersion) String() string {
	if pv.Micro < 0 {
		return pv.MajorMinor()
	}
	return pv.Full()
}

// Environment describes one target runtime. It is treated as immutable
// once constructed; none of the methods on it mutate it, and the engines
// only ever read it.
type Environment struct {
	Python PythonVersion

	// Marker variables, named as PEP 508 names them.
	ImplementationName   string // e.g. "cpython"
	PythonImplementation string // e.g. "CPython" (platform_python_implementation)
	OSName               string // e.g. "posix"
	SysPlatform          string // e.g. "linux"
	PlatformMachine      string // e.g. "x86_64"
	PlatformSystem       string // e.g. "Linux"
	PlatformRelease      string
	PlatformVersion      string

	// ABI is the concrete ABI tag, e.g. "cp312". Derived from the
	// implementation and version when empty.
	ABI string

	// Platforms is the ordered compatible-platform table for wheel
	// selection, most specific first. "any" is implicit and always last.
	Platforms []string

	// Extra holds caller-supplied marker variables, e.g. "extra".
	Extra map[string]string
}

// MarkerValue resolves a marker variable name against the environment.
func (e *Environment) MarkerValue(name string) (string, error) {
	switch name {
	case "python_version":
		return e.Python.MajorMinor(), nil
	case "python_full_version":
		return e.Python.Full(), nil
	case "implementation_name":
		return e.ImplementationName, nil
	case "platform_python_implementation":
		return e.PythonImplementation, nil
	case "os_name":
		return e.OSName, nil
	case "sys_platform":
		return e.SysPlatform, nil
	case "platform_machine":
		return e.PlatformMachine, nil
	case "platform_system":
		return e.PlatformSystem, nil
	case "platform_release":
		return e.PlatformRelease, nil
	case "platform_version":
		return e.PlatformVersion, nil
	}
	if v, ok := e.Extra[name]; ok {
		return v, nil
	}
	return "", &UnknownMarkerVariableError{Variable: name}
}

// Implementation returns the two-letter interpreter abbreviation used in
// wheel tags.
func (e *Environment) Implementation() string {
	switch e.PythonImplementation {
	case "CPython":
		return "cp"
	case "PyPy":
		return "pp"
	case "IronPython":
		return "ip"
	case "Jython":
		return "jy"
	}
	// Fall back on the implementation_name, which is usually already
	// lowercase ("cpython").
	if strings.HasPrefix(e.ImplementationName, "cpython") {
		return "cp"
	}
	return e.ImplementationName
}

// abiTag returns the configured ABI tag, deriving cpXY when unset.
func (e *Environment) abiTag() string {
	if e.ABI != "" {
		return e.ABI
	}
	return fmt.Sprintf("%s%d%d", e.Implementation(), e.Python.Major, e.Python.Minor)
}

func (e *Environment) String() string {
	return fmt.Sprintf("%s %s on %s/%s", e.ImplementationName, e.Python, e.SysPlatform, e.PlatformMachine)
}

// HostEnvironment builds an Environment describing the machine this
// process runs on, for the given interpreter version. CPython is assumed;
// adjust the returned value before use for anything else. It is a plain
// constructor, not shared state.
func HostEnvironment(py PythonVersion) *Environment {
	env := &Environment{
		Python:               py,
		ImplementationName:   "cpython",
		PythonImplementation: "CPython",
	}
	switch runtime.GOOS {
	case "darwin":
		env.OSName = "posix"
		env.SysPlatform = "darwin"
		env.PlatformSystem = "Darwin"
	case "windows":
		env.OSName = "nt"
		env.SysPlatform = "win32"
		env.PlatformSystem = "Windows"
	default:
		env.OSName = "posix"
		env.SysPlatform = "linux"
		env.PlatformSystem = "Linux"
	}
	switch runtime.GOARCH {
	case "amd64":
		env.PlatformMachine = "x86_64"
	case "arm64":
		if runtime.GOOS == "darwin" {
			env.PlatformMachine = "arm64"
		} else {
			env.PlatformMachine = "aarch64"
		}
	default:
		env.PlatformMachine = runtime.GOARCH
	}
	env.Platforms = DefaultPlatforms(env.SysPlatform, env.PlatformMachine)
	return env
}

// ManylinuxX8664 returns an Environment for a CPython interpreter on a
// glibc-based x86_64 Linux, with the portable manylinux aliases ordered
// newest profile first and the bare linux tag last.
func ManylinuxX8664(py PythonVersion) *Environment {
	return &Environment{
		Python:               py,
		ImplementationName:   "cpython",
		PythonImplementation: "CPython",
		OSName:               "posix",
		SysPlatform:          "linux",
		PlatformMachine:      "x86_64",
		PlatformSystem:       "Linux",
		Platforms:            manylinuxPlatforms("x86_64"),
	}
}

// ManylinuxAarch64 is ManylinuxX8664 for 64-bit Arm.
func ManylinuxAarch64(py PythonVersion) *Environment {
	return &Environment{
		Python:               py,
		ImplementationName:   "cpython",
		PythonImplementation: "CPython",
		OSName:               "posix",
		SysPlatform:          "linux",
		PlatformMachine:      "aarch64",
		PlatformSystem:       "Linux",
		Platforms:            manylinuxPlatforms("aarch64"),
	}
}

// MacOSArm64 returns an Environment for CPython on Apple silicon.
func MacOSArm64(py PythonVersion) *Environment {
	return &Environment{
		Python:               py,
		ImplementationName:   "cpython",
		PythonImplementation: "CPython",
		OSName:               "posix",
		SysPlatform:          "darwin",
		PlatformMachine:      "arm64",
		PlatformSystem:       "Darwin",
		Platforms:            macOSPlatforms("arm64"),
	}
}

// manylinuxPlatforms lists every manylinux alias down to manylinux1,
// newest glibc first, ending with the non-portable linux tag. The legacy
// named profiles sit at their glibc equivalence points (manylinux2014 ==
// 2.17, manylinux2010 == 2.12, manylinux1 == 2.5).
func manylinuxPlatforms(arch string) []string {
	var out []string
	for minor := 36; minor >= 5; minor-- {
		out = append(out, fmt.Sprintf("manylinux_2_%d_%s", minor, arch))
		switch minor {
		case 17:
			out = append(out, "manylinux2014_"+arch)
		case 12:
			out = append(out, "manylinux2010_"+arch)
		case 5:
			out = append(out, "manylinux1_"+arch)
		}
	}
	return append(out, "linux_"+arch)
}

// macOSNewestMajor is the newest macOS release the default table assumes
// a target runs. Wheels tagged for newer releases than the running OS are
// not installable, so the table intentionally stops here.
const macOSNewestMajor = 15

// macOSPlatforms lists the compatible macosx tags for arch, newest
// first: one <major>_0 tag per release back to 11, then the 10.x minors.
// Multi-arch binary formats compatible with arch are listed after the
// exact one at each version.
func macOSPlatforms(arch string) []string {
	formats := []string{arch, "universal2"}
	if arch == "x86_64" {
		formats = []string{"x86_64", "intel", "fat64", "fat32", "universal2"}
	}
	var out []string
	for major := macOSNewestMajor; major >= 11; major-- {
		for _, f := range formats {
			out = append(out, fmt.Sprintf("macosx_%d_0_%s", major, f))
		}
	}
	for minor := 16; minor >= 4; minor-- {
		if arch == "arm64" {
			// Pre-11 releases never ran on Apple silicon natively; only
			// universal2 builds carry over.
			out = append(out, fmt.Sprintf("macosx_10_%d_universal2", minor))
			continue
		}
		for _, f := range formats {
			out = append(out, fmt.Sprintf("macosx_10_%d_%s", minor, f))
		}
	}
	return out
}

// windowsPlatforms maps a machine name to its wheel platform tag. The
// platform_machine values reported on Windows are upper case.
func windowsPlatforms(machine string) []string {
	switch strings.ToLower(machine) {
	case "amd64", "x86_64":
		return []string{"win_amd64"}
	case "arm64", "aarch64":
		return []string{"win_arm64"}
	case "x86", "i386", "i686":
		return []string{"win32"}
	}
	return []string{"win_" + strings.ToLower(machine)}
}

// DefaultPlatforms returns the conventional compatible-platform table for
// a sys_platform and machine pair, most specific first.
func DefaultPlatforms(sysPlatform, machine string) []string {
	switch sysPlatform {
	case "linux":
		return manylinuxPlatforms(machine)
	case "darwin":
		return macOSPlatforms(machine)
	case "win32":
		return windowsPlatforms(machine)
	}
	return []string{sysPlatform + "_" + machine}
}
