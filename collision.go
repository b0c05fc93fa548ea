package main

import (
	"math"
	"time"
)

const (
	VesselRadius     = 20.0
	ProjectileRadius = 0.0
	BulletDamage     = 10
	IslandClearance  = 25.0 // resting distance from an island's edge after push-out

	vesselBounceScale  = 0.5 // per unit of combined speed
	vesselBounceMin    = 1.0
	vesselBounceMax    = 6.0
	islandBounceScale  = 1.0 // per unit of vessel speed
	islandBounceMin    = 2.0
	islandBounceMax    = 5.0
	islandSpeedDamping = 0.3

	BounceDuration = 150 * time.Millisecond
)

// CheckCollision checks if two circles overlap
func CheckCollision(x1, y1, r1, x2, y2, r2 float64) bool {
	dx := x2 - x1
	dy := y2 - y1
	radSum := r1 + r2
	return dx*dx+dy*dy < radSum*radSum
}

// Transition is a resolved position change to be animated over Duration.
// The authoritative end state is (ToX, ToY).
type Transition struct {
	FromX    float64
	FromY    float64
	ToX      float64
	ToY      float64
	Duration time.Duration
}

// Moved reports whether the transition changes the position
func (t Transition) Moved() bool {
	return t.FromX != t.ToX || t.FromY != t.ToY
}

// ToState converts to protocol state
func (t Transition) ToState() TransitionState {
	return TransitionState{
		FromX:      t.FromX,
		FromY:      t.FromY,
		ToX:        t.ToX,
		ToY:        t.ToY,
		DurationMs: t.Duration.Milliseconds(),
	}
}

// VesselContact is the outcome of a vessel-vessel overlap. The bounce applies
// to the first vessel; the second gets the opposite vector.
type VesselContact struct {
	BounceX  float64
	BounceY  float64
	Announce bool // false while the pair is inside its cooldown window
}

type pairKey struct{ a, b string }

func makePairKey(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a, b}
}

// CollisionEngine detects and resolves overlaps against a static world.
// It keeps the per-pair contact timestamps used to rate-limit announcements,
// so one engine must only be used from a single goroutine.
type CollisionEngine struct {
	world       *World
	grid        *SpatialGrid
	cooldown    time.Duration
	lastContact map[pairKey]time.Time
	buf         []EntityRef
}

// NewCollisionEngine indexes the world's islands for broad-phase lookups
func NewCollisionEngine(world *World, cooldown time.Duration) *CollisionEngine {
	e := &CollisionEngine{
		world:       world,
		grid:        NewSpatialGrid(world.Width, world.Height, SpatialCellSize),
		cooldown:    cooldown,
		lastContact: make(map[pairKey]time.Time),
	}
	for i, is := range world.Islands {
		e.grid.InsertCircle(is.X, is.Y, is.Radius+IslandClearance, EntityRef{Kind: 'i', Idx: i})
	}
	return e
}

// nearbyIslands returns the islands whose cells contain (x, y)
func (e *CollisionEngine) nearbyIslands(x, y float64) []EntityRef {
	e.buf = e.grid.QueryBuf(x, y, 0, e.buf[:0])
	return e.buf
}

// ProjectileHit tests the projectile's current arc position against the
// vessels in order and returns the first one struck. The shooter is skipped.
func (e *CollisionEngine) ProjectileHit(p *Projectile, vessels []Vessel) (string, bool) {
	x, y := p.Position()
	for i := range vessels {
		v := &vessels[i]
		if v.ID == p.ShooterID {
			continue
		}
		if CheckCollision(x, y, ProjectileRadius, v.X, v.Y, VesselRadius) {
			return v.ID, true
		}
	}
	return "", false
}

// VesselVessel resolves an overlap between a and b. Bounce is reported on
// every overlapping call; Announce only once per pair per cooldown window.
func (e *CollisionEngine) VesselVessel(a, b Vessel, now time.Time) (VesselContact, bool) {
	if !CheckCollision(a.X, a.Y, VesselRadius, b.X, b.Y, VesselRadius) {
		return VesselContact{}, false
	}
	angle := math.Atan2(a.Y-b.Y, a.X-b.X)
	force := Clamp((math.Abs(a.Speed)+math.Abs(b.Speed))*vesselBounceScale, vesselBounceMin, vesselBounceMax)
	return VesselContact{
		BounceX:  math.Cos(angle) * force,
		BounceY:  math.Sin(angle) * force,
		Announce: e.announce(a.ID, b.ID, now),
	}, true
}

func (e *CollisionEngine) announce(a, b string, now time.Time) bool {
	key := makePairKey(a, b)
	if last, ok := e.lastContact[key]; ok && now.Sub(last) < e.cooldown {
		return false
	}
	e.lastContact[key] = now
	return true
}

// Forget drops every pair timestamp involving id
func (e *CollisionEngine) Forget(id string) {
	for k := range e.lastContact {
		if k.a == id || k.b == id {
			delete(e.lastContact, k)
		}
	}
}

// VesselIslands bounces v off every island it overlaps, damps its speed, and
// then applies containment. It returns the resulting transition and the
// number of islands touched.
func (e *CollisionEngine) VesselIslands(v *Vessel) (Transition, int) {
	tr := Transition{FromX: v.X, FromY: v.Y, Duration: BounceDuration}
	x, y := v.X, v.Y
	hits := 0
	for _, ref := range e.nearbyIslands(v.X, v.Y) {
		is := &e.world.Islands[ref.Idx]
		if !CheckCollision(v.X, v.Y, VesselRadius, is.X, is.Y, is.Radius) {
			continue
		}
		angle := math.Atan2(v.Y-is.Y, v.X-is.X)
		force := Clamp(math.Abs(v.Speed)*islandBounceScale, islandBounceMin, islandBounceMax)
		x += math.Cos(angle) * force
		y += math.Sin(angle) * force
		v.Speed *= islandSpeedDamping
		hits++
	}
	v.X, v.Y = e.Contain(x, y)
	tr.ToX, tr.ToY = v.X, v.Y
	return tr, hits
}

// Contain clamps a position to the world and then pushes it radially out of
// any island it still overlaps, to IslandClearance beyond the island's edge.
func (e *CollisionEngine) Contain(x, y float64) (float64, float64) {
	x, y = e.world.ClampToWorld(x, y)
	for _, ref := range e.nearbyIslands(x, y) {
		is := &e.world.Islands[ref.Idx]
		if !CheckCollision(x, y, VesselRadius, is.X, is.Y, is.Radius) {
			continue
		}
		angle := math.Atan2(y-is.Y, x-is.X)
		x = is.X + math.Cos(angle)*(is.Radius+IslandClearance)
		y = is.Y + math.Sin(angle)*(is.Radius+IslandClearance)
	}
	return x, y
}

// ContainTransition wraps Contain as an animated transition from (x, y)
func (e *CollisionEngine) ContainTransition(x, y float64) Transition {
	tx, ty := e.Contain(x, y)
	return Transition{FromX: x, FromY: y, ToX: tx, ToY: ty, Duration: BounceDuration}
}
