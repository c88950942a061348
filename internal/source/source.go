// Package source parses rule package source descriptors.
//
// A descriptor is one of:
//
//	/path/to/rules.tar.gz                      local archive
//	https://host/rules.tar.gz                  HTTP(S) download
//	git+<repo-url>[#path=<rel-path>]           shallow git clone
//	oci://<reference>[#path=<rel-path>]        OCI artifact (also oci+<reference>)
//
// Parsing is pure: nothing is resolved or checked for existence here.
package source

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/stacklok/minos/internal/syncerr"
)

// Type is the tag of a Source
type Type string

const (
	// TypeLocal is an archive on the local filesystem
	TypeLocal Type = "local"

	// TypeHTTP is an archive served over HTTP or HTTPS
	TypeHTTP Type = "http"

	// TypeGit is a path inside a git repository
	TypeGit Type = "git"

	// TypeOCI is a file inside an OCI artifact
	TypeOCI Type = "oci"
)

const (
	gitPrefix     = "git+"
	ociURLPrefix  = "oci://"
	ociPlusPrefix = "oci+"
	pathFragment  = "path="
)

// Source is an immutable, parsed rule package source
type Source struct {
	Type Type

	// Location is the local path, HTTP URL, git repository URL or OCI reference
	Location string

	// InnerPath optionally selects a file or directory inside a git/OCI source
	InnerPath string

	raw string
}

// Local returns a local archive source
func Local(path string) Source {
	return Source{Type: TypeLocal, Location: path, raw: path}
}

// String returns the descriptor the source was parsed from
func (s Source) String() string {
	if s.raw != "" {
		return s.raw
	}
	return s.Location
}

// IsRemote reports whether materialising the source requires a fetch
func (s Source) IsRemote() bool {
	return s.Type != TypeLocal
}

// Parse parses a source descriptor
func Parse(raw string) (Source, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Source{}, syncerr.Newf(syncerr.KindInvalidSource, "parse source", "source cannot be empty")
	}

	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		u, err := url.Parse(trimmed)
		if err != nil || u.Host == "" {
			return Source{}, syncerr.Newf(syncerr.KindInvalidSource, "parse source", "invalid URL %q", trimmed)
		}
		return Source{Type: TypeHTTP, Location: trimmed, raw: raw}, nil

	case strings.HasPrefix(lower, gitPrefix):
		location, inner, err := splitFragment(trimmed[len(gitPrefix):])
		if err != nil {
			return Source{}, err
		}
		return Source{Type: TypeGit, Location: location, InnerPath: inner, raw: raw}, nil

	case strings.HasPrefix(lower, ociURLPrefix), strings.HasPrefix(lower, ociPlusPrefix):
		rest := trimmed[len(ociPlusPrefix):]
		if strings.HasPrefix(lower, ociURLPrefix) {
			rest = trimmed[len(ociURLPrefix):]
		}
		location, inner, err := splitFragment(rest)
		if err != nil {
			return Source{}, err
		}
		return Source{Type: TypeOCI, Location: location, InnerPath: inner, raw: raw}, nil

	default:
		return Source{Type: TypeLocal, Location: trimmed, raw: raw}, nil
	}
}

// splitFragment separates "<location>#path=<inner>" into its parts
func splitFragment(s string) (string, string, error) {
	location, fragment, hasFragment := strings.Cut(s, "#")
	if location == "" {
		return "", "", syncerr.Newf(syncerr.KindInvalidSource, "parse source", "missing location in %q", s)
	}
	if !hasFragment || fragment == "" {
		return location, "", nil
	}
	if !strings.HasPrefix(fragment, pathFragment) {
		return "", "", syncerr.Newf(syncerr.KindInvalidSource, "parse source",
			"unsupported fragment %q, expected %s<rel-path>", fragment, pathFragment)
	}
	inner := strings.TrimPrefix(fragment[len(pathFragment):], "/")
	if inner == "" {
		return "", "", syncerr.Newf(syncerr.KindInvalidSource, "parse source", "empty path in fragment %q", fragment)
	}
	return location, inner, nil
}

// Validate checks that the parsed source is usable
func (s Source) Validate() error {
	if s.Location == "" {
		return fmt.Errorf("%s source requires a location", s.Type)
	}
	switch s.Type {
	case TypeLocal, TypeHTTP, TypeGit, TypeOCI:
		return nil
	default:
		return fmt.Errorf("unsupported source type: %s", s.Type)
	}
}
