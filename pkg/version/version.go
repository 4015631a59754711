// Package version provides the program version and HTTP protocol version
// parsing and acceptance.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Program is the controller version. Overridden at link time with
// -ldflags "-X github.com/therminator/therminator-go/pkg/version.Program=...".
var Program = "dev"

// Commit is the VCS revision, set at link time.
var Commit = ""

// protoPrefix prefixes every HTTP version token.
const protoPrefix = "HTTP/"

// HTTPVersion represents a parsed "HTTP/major.minor" protocol version.
type HTTPVersion struct {
	Major uint16
	Minor uint16
}

// Supported lists the accepted request versions.
var Supported = []HTTPVersion{{1, 0}, {1, 1}}

// Response is the version written on every status line.
var Response = HTTPVersion{1, 1}

// Parse parses an "HTTP/major.minor" version token.
func Parse(s string) (HTTPVersion, error) {
	if !strings.HasPrefix(s, protoPrefix) {
		return HTTPVersion{}, fmt.Errorf("invalid version %q: expected %smajor.minor", s, protoPrefix)
	}

	parts := strings.Split(s[len(protoPrefix):], ".")
	if len(parts) != 2 {
		return HTTPVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil || parts[0] == "" {
		return HTTPVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil || parts[1] == "" {
		return HTTPVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return HTTPVersion{Major: uint16(major), Minor: uint16(minor)}, nil
}

// String returns the version as "HTTP/major.minor".
func (v HTTPVersion) String() string {
	return fmt.Sprintf("%s%d.%d", protoPrefix, v.Major, v.Minor)
}

// Accepted reports whether the request version token s is served.
// Only the exact tokens of Supported are accepted; "HTTP/1.01" is not.
func Accepted(s string) bool {
	for _, v := range Supported {
		if s == v.String() {
			return true
		}
	}
	return false
}

// Full returns the program version with the commit appended when known.
func Full() string {
	if Commit == "" {
		return Program
	}
	c := Commit
	if len(c) > 12 {
		c = c[:12]
	}
	return Program + " (" + c + ")"
}
