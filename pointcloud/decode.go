package pointcloud

import (
	"bufio"
	"image/color"
	"io"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/Kabilan-n/voxblox/colormap"
)

// fieldSet names the recognized PCD-style field layouts, mirroring the
// teacher's pcdFieldType enum.
type fieldSet int

const (
	fieldsXYZ fieldSet = iota
	fieldsXYZRGB
	fieldsXYZIntensity
)

// Decode reads an ASCII PCD-style point cloud: a "FIELDS ..." header line
// followed by one line per point of space-separated floats. Fields named
// "rgb" (a packed 24-bit integer, matching the teacher's PCD color
// encoding) trigger colored decoding; "intensity" runs the value through
// cmap; plain "x y z" clouds get a flat default color.
func Decode(r io.Reader, cmap colormap.Map, maxIntensity float64) (Cloud, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return Cloud{}, errors.New("empty point cloud stream")
	}
	fields, err := parseFieldsLine(scanner.Text())
	if err != nil {
		return Cloud{}, err
	}

	var cloud Cloud
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tokens := strings.Fields(line)
		expected := 3
		if fields != fieldsXYZ {
			expected = 4
		}
		if len(tokens) != expected {
			return Cloud{}, errors.Errorf("line %d: expected %d fields, got %d", lineNo, expected, len(tokens))
		}
		vals := make([]float64, len(tokens))
		for i, tok := range tokens {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return Cloud{}, errors.Wrapf(err, "line %d: invalid field %q", lineNo, tok)
			}
			vals[i] = v
		}
		p := r3.Vector{X: vals[0], Y: vals[1], Z: vals[2]}
		var c color.NRGBA
		switch fields {
		case fieldsXYZ:
			c = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
		case fieldsXYZRGB:
			c = unpackRGB(int64(vals[3]))
		case fieldsXYZIntensity:
			if cmap == nil {
				return Cloud{}, errors.New("intensity field present but no colormap configured")
			}
			c = cmap(vals[3], maxIntensity)
		}
		cloud.Points = append(cloud.Points, p)
		cloud.Colors = append(cloud.Colors, c)
	}
	if err := scanner.Err(); err != nil {
		return Cloud{}, errors.Wrap(err, "reading point cloud")
	}
	return cloud, nil
}

func parseFieldsLine(line string) (fieldSet, error) {
	line = strings.TrimSpace(line)
	name, rest, _ := strings.Cut(line, " ")
	if name != "FIELDS" {
		return 0, errors.Errorf("expected FIELDS header line, got %q", line)
	}
	switch strings.TrimSpace(rest) {
	case "x y z":
		return fieldsXYZ, nil
	case "x y z rgb":
		return fieldsXYZRGB, nil
	case "x y z intensity":
		return fieldsXYZIntensity, nil
	default:
		return 0, errors.Errorf("unsupported FIELDS %q", rest)
	}
}

func unpackRGB(packed int64) color.NRGBA {
	r := uint8(0xFF & (packed >> 16))
	g := uint8(0xFF & (packed >> 8))
	b := uint8(0xFF & packed)
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
