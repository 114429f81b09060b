// Package fixture parses multi-file test fixtures.
//
// A fixture is either a single file, stored at /main.rs, or a sequence of
// files each introduced by a `//- /path` header line. The cursor marker
// `<|>` marks a position; two markers in the same file mark a range. The
// markers are removed from the returned text.
package fixture

import (
	"fmt"
	"strings"
)

// Marker is the cursor marker.
const Marker = "<|>"

// File is one file of a fixture.
type File struct {
	Path string
	Text string
}

// Fixture is a parsed fixture.
type Fixture struct {
	Files []File

	// Path of the file holding the markers; empty when there are none.
	MarkerPath string
	// Offsets of the markers, in order, with earlier markers removed.
	Markers []uint32
}

// Parse splits text into files and extracts marker positions.
func Parse(text string) (*Fixture, error) {
	fx := &Fixture{}
	if !strings.HasPrefix(strings.TrimLeft(text, " \t\n"), "//-") {
		if err := fx.add("/main.rs", text); err != nil {
			return nil, err
		}
		return fx, nil
	}

	var path string
	var body strings.Builder
	flush := func() error {
		if path == "" {
			return nil
		}
		return fx.add(path, body.String())
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//-") {
			if err := flush(); err != nil {
				return nil, err
			}
			path = strings.TrimSpace(strings.TrimPrefix(trimmed, "//-"))
			if fields := strings.Fields(path); len(fields) > 0 {
				path = fields[0]
			}
			body.Reset()
			continue
		}
		if path == "" {
			continue
		}
		body.WriteString(line)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return fx, nil
}

func (fx *Fixture) add(path, text string) error {
	var markers []uint32
	for {
		i := strings.Index(text, Marker)
		if i < 0 {
			break
		}
		markers = append(markers, uint32(i))
		text = text[:i] + text[i+len(Marker):]
	}
	if len(markers) > 2 {
		return fmt.Errorf("fixture %s: %d markers, want at most 2", path, len(markers))
	}
	if len(markers) > 0 {
		if fx.MarkerPath != "" {
			return fmt.Errorf("fixture: markers in both %s and %s", fx.MarkerPath, path)
		}
		fx.MarkerPath = path
		fx.Markers = markers
	}
	fx.Files = append(fx.Files, File{Path: path, Text: text})
	return nil
}

// Text returns the text of the file at path, or "".
func (fx *Fixture) Text(path string) string {
	for _, f := range fx.Files {
		if f.Path == path {
			return f.Text
		}
	}
	return ""
}
