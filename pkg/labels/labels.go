// Package labels reads and writes YOLO-format label files and converts
// between normalized and pixel-space boxes.
package labels

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/menta2k/image-synth/pkg/types"
)

// Entry is a parsed label line and its zero-based index within the file.
type Entry struct {
	Index int
	Box   types.NormalizedBox
}

// ParseLine parses "class x_center y_center width height [...]". Lines with
// fewer than five fields or non-numeric or non-finite geometry are rejected.
func ParseLine(line string) (types.NormalizedBox, bool) {
	parts := strings.Fields(line)
	if len(parts) < 5 {
		return types.NormalizedBox{}, false
	}

	var vals [4]float64
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(parts[i+1], 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return types.NormalizedBox{}, false
		}
		vals[i] = v
	}

	return types.NormalizedBox{
		ClassID: types.ClassID(parts[0]),
		XCenter: vals[0],
		YCenter: vals[1],
		Width:   vals[2],
		Height:  vals[3],
	}, true
}

// Parse reads every line of r. Indices count all lines, including blank and
// malformed ones, so they stay aligned with line numbers in the file.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	idx := 0
	for scanner.Scan() {
		if box, ok := ParseLine(scanner.Text()); ok {
			entries = append(entries, Entry{Index: idx, Box: box})
		}
		idx++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read label file")
	}
	return entries, nil
}

// ToPixel converts a normalized box to corner coordinates in a width x height
// image, clamped to [0, dim-1]. It returns false when the clamped box has no
// area.
func ToPixel(box types.NormalizedBox, width, height int) (types.PixelBox, bool) {
	if width <= 0 || height <= 0 {
		return types.PixelBox{}, false
	}

	fw, fh := float64(width), float64(height)
	xc := box.XCenter * fw
	yc := box.YCenter * fh
	bw := box.Width * fw
	bh := box.Height * fh

	pb := types.PixelBox{
		X1: clampCoord(xc-bw/2, width-1),
		Y1: clampCoord(yc-bh/2, height-1),
		X2: clampCoord(xc+bw/2, width-1),
		Y2: clampCoord(yc+bh/2, height-1),
	}

	if pb.X2 <= pb.X1 || pb.Y2 <= pb.Y1 {
		return types.PixelBox{}, false
	}
	return pb, true
}

// FromPixel normalizes a pixel box against the canvas size.
func FromPixel(classID types.ClassID, box types.PixelBox, width, height int) types.NormalizedBox {
	fw, fh := float64(width), float64(height)
	return types.NormalizedBox{
		ClassID: classID,
		XCenter: float64(box.X1+box.X2) / 2 / fw,
		YCenter: float64(box.Y1+box.Y2) / 2 / fh,
		Width:   float64(box.X2-box.X1) / fw,
		Height:  float64(box.Y2-box.Y1) / fh,
	}
}

// Format renders a label line, newline included.
func Format(box types.NormalizedBox) string {
	return fmt.Sprintf("%s %.6f %.6f %.6f %.6f\n",
		box.ClassID, box.XCenter, box.YCenter, box.Width, box.Height)
}

// Line is FromPixel followed by Format.
func Line(classID types.ClassID, box types.PixelBox, width, height int) string {
	return Format(FromPixel(classID, box, width, height))
}

// Write writes label lines to w in order.
func Write(w io.Writer, lines []string) error {
	for _, l := range lines {
		if _, err := io.WriteString(w, l); err != nil {
			return errors.Wrap(err, "failed to write label line")
		}
	}
	return nil
}

// clampCoord clamps v to [0, hi] before truncating, so huge values never
// reach the int conversion.
func clampCoord(v float64, hi int) int {
	if !(v > 0) {
		return 0
	}
	if v >= float64(hi) {
		return hi
	}
	return int(v)
}
