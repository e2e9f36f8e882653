package roc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rucd-project/apt-graph/rank"
)

func TestPointsStartsAtOrigin(t *testing.T) {
	points := Points(nil, 10, 2)
	assert.Equal(t, Point{0, 0}, points[0])
}

func TestPointsEndpointIsOneOne(t *testing.T) {
	buckets := []rank.Bucket{
		{Index: 3, Names: []string{"d1", "d2.apt"}},
		{Index: 1, Names: []string{"d3", "d4.apt"}},
	}
	points := Points(buckets, 4, 2)
	last := points[len(points)-1]
	assert.InDelta(t, 1.0, last.X, 1e-12)
	assert.InDelta(t, 1.0, last.Y, 1e-12)
}

// TestPointsS5 matches spec/§8 scenario S5: a single bucket containing
// one non-apt then one apt domain emits one intermediate point
// (1/(N-A), 1/A).
func TestPointsS5(t *testing.T) {
	buckets := []rank.Bucket{
		{Index: 5, Names: []string{"plain.com", "evil.apt"}},
	}
	n, a := 10, 3
	points := Points(buckets, n, a)

	assert.Len(t, points, 2)
	assert.InDelta(t, 1.0/float64(n-a), points[1].X, 1e-12)
	assert.InDelta(t, 1.0/float64(a), points[1].Y, 1e-12)
}

func TestToCSVFormat(t *testing.T) {
	out := ToCSV([]Point{{0, 0}, {0.5, 1}})
	assert.Equal(t, "0,0\n0.5,1\n", out)
}
