// Package roc implements the C8 ROC reducer: turning a ranking into
// ROC points against `.apt`-suffix ground truth, and serializing them
// as CSV (spec/§4.8). spec.md itself calls this component "a trivial
// reducer specified only at the contract level", so CSV emission uses
// stdlib encoding/csv rather than reaching for a library no pack
// member uses for CSV (justified in DESIGN.md).
package roc

import (
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/rucd-project/apt-graph/rank"
)

// Point is one (x, y) coordinate of the ROC curve.
type Point struct {
	X, Y float64
}

// Points computes ROC points from buckets (index → names, in
// descending-index order, as produced by rank.Bucketize), the total
// domain count N, and the total `.apt` count A. One point is emitted
// per bucket, after advancing the cumulative counters for every name
// in that bucket; the curve starts at (0,0) per spec/§4.8 and
// spec/§8 property 8. When A == 0 or N == A, the corresponding axis is
// held at 0 to avoid a division by zero.
func Points(buckets []rank.Bucket, n, a int) []Point {
	points := make([]Point, 0, len(buckets)+1)
	points = append(points, Point{0, 0})

	var cumNonApt, cumApt int
	denomX := float64(n - a)
	denomY := float64(a)

	for _, b := range buckets {
		for _, name := range b.Names {
			if strings.HasSuffix(name, ".apt") {
				cumApt++
			} else {
				cumNonApt++
			}
		}

		var x, y float64
		if denomX > 0 {
			x = float64(cumNonApt) / denomX
		}
		if denomY > 0 {
			y = float64(cumApt) / denomY
		}
		points = append(points, Point{x, y})
	}

	return points
}

// ToCSV serializes points as "x,y\n" lines, UTF-8, no header, per
// spec/§6's ROC output contract.
func ToCSV(points []Point) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.UseCRLF = false

	for _, p := range points {
		record := []string{
			strconv.FormatFloat(p.X, 'f', -1, 64),
			strconv.FormatFloat(p.Y, 'f', -1, 64),
		}
		// csv.Writer.Write never fails for a plain []string record with
		// no embedded quote characters.
		_ = w.Write(record)
	}
	w.Flush()

	return sb.String()
}
