// Package paramio reads and writes the engine's per-stage parameter
// files: UTF-16 text, sectioned by category, one file per stage per
// camera model (spec §6 "Parameter files"). Grounded on the teacher's
// hand-rolled byte-oriented RIFF chunk scanner (internal/container):
// a small, purpose-built scanner rather than a generic INI library,
// since no example repo in the pack carries one and the on-disk format
// (UTF-16, bracketed sections, "name=value" pairs) is bespoke to this
// instrument family.
package paramio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/stereodpl/dpl/dplerr"
	"github.com/stereodpl/dpl/frame"
)

// FileName builds the conventional parameter-file name for a stage and
// camera model (spec §6: "<Stage>Parameter_<CameraModel>.ini").
func FileName(stage, cameraModel string) string {
	return fmt.Sprintf("%sParameter_%s.ini", stage, cameraModel)
}

// Read loads a parameter file at path into a ParameterSet. The file is
// decoded as UTF-16 (BOM-sniffed, defaulting to little-endian, matching
// the instrument family's Windows-authored parameter files).
func Read(path string) (frame.ParameterSet, error) {
	var ps frame.ParameterSet

	f, err := os.Open(path)
	if err != nil {
		return ps, err
	}
	defer f.Close()

	dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	r := transform.NewReader(f, dec)

	var category string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			category = strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		ps.Set(frame.ParameterEntry{Category: category, Name: name, Value: parseValue(value)})
	}
	if err := sc.Err(); err != nil && err != io.EOF {
		return ps, dplerr.Configuration("paramio: reading %s: %v", path, err)
	}
	return ps, nil
}

// Write serializes ps to path as UTF-16LE text, grouped by category in
// first-seen order. Overwrites any existing file.
func Write(path string, ps frame.ParameterSet) error {
	f, err := os.Create(path)
	if err != nil {
		return dplerr.Configuration("paramio: creating %s: %v", path, err)
	}
	defer f.Close()

	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	w := transform.NewWriter(f, enc)
	defer w.Close()

	var lastCategory string
	for _, e := range ps.Entries {
		if e.Category != lastCategory {
			if lastCategory != "" {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "[%s]\r\n", e.Category)
			lastCategory = e.Category
		}
		fmt.Fprintf(w, "%s=%s\r\n", e.Name, formatValue(e.Value))
	}
	return nil
}

func parseValue(s string) frame.ParameterValue {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return frame.IntValue(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return frame.DoubleValue(f)
	}
	return frame.IntValue(0)
}

func formatValue(v frame.ParameterValue) string {
	switch v.Kind {
	case frame.ValueFloat:
		return strconv.FormatFloat(float64(v.Float), 'g', -1, 32)
	case frame.ValueDouble:
		return strconv.FormatFloat(v.Double, 'g', -1, 64)
	default:
		return strconv.FormatInt(v.Int, 10)
	}
}

// EnsureDefault writes def to path if the file does not already exist
// (spec §6: "Missing file = create from defaults").
func EnsureDefault(path string, def frame.ParameterSet) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return dplerr.Configuration("paramio: checking %s: %v", path, err)
	}
	return Write(path, def)
}
