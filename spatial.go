package main

import "math"

// SpatialCellSize is about the diameter of the largest island plus a vessel
const SpatialCellSize = 160.0

// EntityRef identifies an entity in the grid
type EntityRef struct {
	Kind byte // 'i'=island
	Idx  int  // index into the corresponding flat list
}

// SpatialGrid is a fixed-size grid for broad-phase collision queries
type SpatialGrid struct {
	cols, rows int
	cellSize   float64
	cells      [][]EntityRef
}

// NewSpatialGrid creates a grid covering a width x height world
func NewSpatialGrid(width, height, cellSize float64) *SpatialGrid {
	cols := int(math.Ceil(width/cellSize)) + 1
	rows := int(math.Ceil(height/cellSize)) + 1
	return &SpatialGrid{
		cols:     cols,
		rows:     rows,
		cellSize: cellSize,
		cells:    make([][]EntityRef, cols*rows),
	}
}

// cellRange returns the clamped cell bounds of a bounding box
func (g *SpatialGrid) cellRange(x, y, radius float64) (minCX, maxCX, minCY, maxCY int) {
	minCX = g.clampCol(int(math.Floor((x - radius) / g.cellSize)))
	maxCX = g.clampCol(int(math.Floor((x + radius) / g.cellSize)))
	minCY = g.clampRow(int(math.Floor((y - radius) / g.cellSize)))
	maxCY = g.clampRow(int(math.Floor((y + radius) / g.cellSize)))
	return
}

func (g *SpatialGrid) clampCol(c int) int {
	if c < 0 {
		return 0
	}
	if c >= g.cols {
		return g.cols - 1
	}
	return c
}

func (g *SpatialGrid) clampRow(r int) int {
	if r < 0 {
		return 0
	}
	if r >= g.rows {
		return g.rows - 1
	}
	return r
}

// InsertCircle adds an entity reference to all cells overlapping its bounding box
func (g *SpatialGrid) InsertCircle(x, y, radius float64, ref EntityRef) {
	minCX, maxCX, minCY, maxCY := g.cellRange(x, y, radius)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			idx := cy*g.cols + cx
			g.cells[idx] = append(g.cells[idx], ref)
		}
	}
}

// QueryBuf appends the refs of every cell overlapping the bounding box to buf.
// A ref stored in several cells is reported once per overlapping cell.
func (g *SpatialGrid) QueryBuf(x, y, radius float64, buf []EntityRef) []EntityRef {
	minCX, maxCX, minCY, maxCY := g.cellRange(x, y, radius)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			buf = append(buf, g.cells[cy*g.cols+cx]...)
		}
	}
	return buf
}
