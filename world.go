package main

import (
	"math/rand/v2"
)

const (
	MinIslandRadius = 50.0
	MaxIslandRadius = 150.0
	islandEdgeGap   = 100.0 // min gap to world edge and between islands
	islandAttempts  = 100
	spawnAttempts   = 50
)

// IslandCategory is the terrain kind of an island
type IslandCategory int

const (
	IslandBeach  IslandCategory = 0
	IslandForest IslandCategory = 1
	IslandRock   IslandCategory = 2
)

func (c IslandCategory) String() string {
	switch c {
	case IslandForest:
		return "forest"
	case IslandRock:
		return "rock"
	default:
		return "beach"
	}
}

// Island is an immutable circular obstacle
type Island struct {
	ID       int
	X, Y     float64
	Radius   float64
	Category IslandCategory
}

// World is the static arena: bounds plus obstacles. Never mutated after creation.
type World struct {
	Width   float64
	Height  float64
	Islands []Island
}

// GenerateWorld places up to count non-overlapping islands inside the bounds.
// Placement is best effort: a crowded world may end up with fewer islands.
func GenerateWorld(width, height float64, count int, rng *rand.Rand) *World {
	w := &World{Width: width, Height: height}
	for i := 0; i < count; i++ {
		for attempt := 0; attempt < islandAttempts; attempt++ {
			r := MinIslandRadius + rng.Float64()*(MaxIslandRadius-MinIslandRadius)
			margin := r + islandEdgeGap
			if width <= 2*margin || height <= 2*margin {
				break
			}
			x := margin + rng.Float64()*(width-2*margin)
			y := margin + rng.Float64()*(height-2*margin)
			if w.overlapsIsland(x, y, r+islandEdgeGap) {
				continue
			}
			w.Islands = append(w.Islands, Island{
				ID:       len(w.Islands),
				X:        x,
				Y:        y,
				Radius:   r,
				Category: IslandCategory(rng.IntN(3)),
			})
			break
		}
	}
	return w
}

func (w *World) overlapsIsland(x, y, clearance float64) bool {
	for _, is := range w.Islands {
		if Distance(x, y, is.X, is.Y) < is.Radius+clearance {
			return true
		}
	}
	return false
}

// ClampToWorld restricts a position to [0, Width] x [0, Height]
func (w *World) ClampToWorld(x, y float64) (float64, float64) {
	return Clamp(x, 0, w.Width), Clamp(y, 0, w.Height)
}

// RandomSpawn picks a uniformly random in-bounds point clear of every island
func (w *World) RandomSpawn(rng *rand.Rand) (float64, float64) {
	var x, y float64
	for i := 0; i < spawnAttempts; i++ {
		x = rng.Float64() * w.Width
		y = rng.Float64() * w.Height
		if !w.overlapsIsland(x, y, IslandClearance) {
			return x, y
		}
	}
	return x, y
}

// IslandStates converts the obstacles to protocol state
func (w *World) IslandStates() []IslandState {
	out := make([]IslandState, 0, len(w.Islands))
	for _, is := range w.Islands {
		out = append(out, IslandState{
			ID:     is.ID,
			X:      is.X,
			Y:      is.Y,
			Radius: is.Radius,
			Type:   int(is.Category),
		})
	}
	return out
}

// WorldFromState rebuilds a world descriptor received over the wire
func WorldFromState(width, height float64, islands []IslandState) *World {
	w := &World{Width: width, Height: height}
	for _, is := range islands {
		w.Islands = append(w.Islands, Island{
			ID:       is.ID,
			X:        is.X,
			Y:        is.Y,
			Radius:   is.Radius,
			Category: IslandCategory(is.Type),
		})
	}
	return w
}
