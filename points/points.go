// Package points reads timestamped point logs.
//
// Two formats are accepted. Files ending in .csv carry a header row
// (timestamp,x,y). Anything else is the plain log format: one point per line,
// three whitespace separated values (seconds, x, y). Coordinates may be
// fractional and are rounded to the nearest pixel.
package points

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gocarina/gocsv"
)

// ErrMalformed is returned for lines that do not hold three numbers.
var ErrMalformed = errors.New("points: malformed input")

// Point is one timestamped event in frame pixel coordinates.
type Point struct {
	Timestamp float64 // seconds from the start of the video
	X, Y      int
}

// record is the on-disk row; field order matters for headerless input.
type record struct {
	Timestamp float64 `csv:"timestamp"`
	X         float64 `csv:"x"`
	Y         float64 `csv:"y"`
}

func (r record) point() Point {
	return Point{
		Timestamp: r.Timestamp,
		X:         int(math.Round(r.X)),
		Y:         int(math.Round(r.Y)),
	}
}

// Load reads a point log from path, choosing the format by extension.
func Load(path string) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening point file: %w", err)
	}
	defer f.Close()

	var pts []Point
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		pts, err = ReadCSV(f)
	} else {
		pts, err = ReadText(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pts, nil
}

// ReadCSV parses headered CSV with timestamp, x and y columns.
func ReadCSV(r io.Reader) ([]Point, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var rows []record
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return finish(rows), nil
}

// ReadText parses the whitespace separated log format. Blank lines are
// skipped.
func ReadText(r io.Reader) ([]Point, error) {
	var tsv strings.Builder
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: line %d: expected 3 values, got %d", ErrMalformed, line, len(fields))
		}
		tsv.WriteString(strings.Join(fields, "\t"))
		tsv.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if tsv.Len() == 0 {
		return nil, nil
	}

	cr := csv.NewReader(strings.NewReader(tsv.String()))
	cr.Comma = '\t'
	cr.FieldsPerRecord = 3

	var rows []record
	if err := gocsv.UnmarshalCSVWithoutHeaders(cr, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return finish(rows), nil
}

// finish converts rows to points and orders them by timestamp.
func finish(rows []record) []Point {
	pts := make([]Point, len(rows))
	for i, r := range rows {
		pts[i] = r.point()
	}
	if !Sorted(pts) {
		slog.Warn("point log not in timestamp order, sorting", "points", len(pts))
		slices.SortStableFunc(pts, func(a, b Point) int {
			switch {
			case a.Timestamp < b.Timestamp:
				return -1
			case a.Timestamp > b.Timestamp:
				return 1
			}
			return 0
		})
	}
	return pts
}

// Sorted reports whether pts is in non-decreasing timestamp order.
func Sorted(pts []Point) bool {
	for i := 1; i < len(pts); i++ {
		if pts[i].Timestamp < pts[i-1].Timestamp {
			return false
		}
	}
	return true
}

// Duration returns the timestamp of the last point, or 0 for no points.
func Duration(pts []Point) float64 {
	if len(pts) == 0 {
		return 0
	}
	return pts[len(pts)-1].Timestamp
}

// WriteCSV writes pts as headered CSV readable by ReadCSV.
func WriteCSV(w io.Writer, pts []Point) error {
	rows := make([]record, len(pts))
	for i, p := range pts {
		rows[i] = record{Timestamp: p.Timestamp, X: float64(p.X), Y: float64(p.Y)}
	}
	return gocsv.Marshal(rows, w)
}
