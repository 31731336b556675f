package telemetry

import (
	"errors"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/flatland/field"
)

// ErrEmptyField is returned when dumping a field that was never computed.
var ErrEmptyField = errors.New("telemetry: field is empty")

// FieldCell is one grid node of a field dump.
type FieldCell struct {
	GX        int     `csv:"gx"`
	GY        int     `csv:"gy"`
	X         float64 `csv:"x"`
	Y         float64 `csv:"y"`
	Distance  float64 `csv:"distance"`
	GradientX float64 `csv:"gradient_x"`
	GradientY float64 `csv:"gradient_y"`
	Curl      float64 `csv:"curl"`
}

// FieldCells lists every stride-th grid node of f in row-major order.
// A stride below 1 is treated as 1.
func FieldCells(f *field.Field, stride int) []FieldCell {
	if f.IsEmpty() {
		return nil
	}
	if stride < 1 {
		stride = 1
	}
	r := f.Region()
	cells := make([]FieldCell, 0, ((r.Width+stride-1)/stride)*((r.Height+stride-1)/stride))
	for y := 0; y < r.Height; y += stride {
		for x := 0; x < r.Width; x += stride {
			p := r.GridToWorld(x, y)
			g := f.GradientAt(x, y)
			cells = append(cells, FieldCell{
				GX:        x,
				GY:        y,
				X:         p.X,
				Y:         p.Y,
				Distance:  f.DistanceAt(x, y),
				GradientX: g.X,
				GradientY: g.Y,
				Curl:      f.CurlAt(x, y),
			})
		}
	}
	return cells
}

// WriteFieldCSV writes a strided dump of f to w with a header row.
func WriteFieldCSV(w io.Writer, f *field.Field, stride int) error {
	if f.IsEmpty() {
		return ErrEmptyField
	}
	if err := gocsv.Marshal(FieldCells(f, stride), w); err != nil {
		return fmt.Errorf("dumping field: %w", err)
	}
	return nil
}
