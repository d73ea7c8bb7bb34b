package fft

// TilePair identifies the two tiles swapped by one work-group of an in-place
// square transpose: tile (Row, Col) and its mirror (Col, Row), Row <= Col.
type TilePair struct {
	Row int
	Col int
}

// TriangleTileCount returns the number of tile pairs on and above the
// diagonal of a tiles x tiles grid.
func TriangleTileCount(tiles int) int {
	if tiles <= 0 {
		return 0
	}

	return tiles * (tiles + 1) / 2
}

// TriangleTile maps a linear work-group index onto its tile pair by walking
// rows of the upper triangle. The generated in-place transpose kernel uses
// the same walk.
func TriangleTile(index, tiles int) TilePair {
	row := 0
	rem := index

	for row < tiles {
		width := tiles - row
		if rem < width {
			break
		}

		rem -= width
		row++
	}

	return TilePair{Row: row, Col: row + rem}
}
