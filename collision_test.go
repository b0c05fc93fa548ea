package main

import (
	"math"
	"testing"
	"time"
)

// testWorld is 1000x1000 with one island of radius 100 at the center
func testWorld() *World {
	return &World{
		Width:   1000,
		Height:  1000,
		Islands: []Island{{ID: 0, X: 500, Y: 500, Radius: 100, Category: IslandRock}},
	}
}

func TestCheckCollision(t *testing.T) {
	// Overlapping circles
	if !CheckCollision(0, 0, 10, 15, 0, 10) {
		t.Error("circles should collide (overlapping)")
	}

	// Touching circles do not overlap
	if CheckCollision(0, 0, 10, 20, 0, 10) {
		t.Error("touching circles should not collide")
	}

	// Non-overlapping circles
	if CheckCollision(0, 0, 10, 25, 0, 10) {
		t.Error("circles should not collide")
	}

	// Same position
	if !CheckCollision(5, 5, 1, 5, 5, 1) {
		t.Error("same position should collide")
	}
}

func TestContainPushesOutOfIsland(t *testing.T) {
	e := NewCollisionEngine(testWorld(), time.Second)
	want := 100 + IslandClearance

	points := [][2]float64{
		{610, 500}, // inside combined radius on the +X axis
		{560, 560}, // diagonal
		{500, 401}, // above
	}
	for _, pt := range points {
		angle := math.Atan2(pt[1]-500, pt[0]-500)
		x, y := e.Contain(pt[0], pt[1])
		if d := Distance(x, y, 500, 500); math.Abs(d-want) > 1e-9 {
			t.Errorf("%v: expected distance %f, got %f", pt, want, d)
		}
		if got := math.Atan2(y-500, x-500); math.Abs(got-angle) > 1e-9 {
			t.Errorf("%v: angle changed from %f to %f", pt, angle, got)
		}
	}
}

func TestContainClampsToWorld(t *testing.T) {
	e := NewCollisionEngine(testWorld(), time.Second)
	x, y := e.Contain(-10, 1200)
	if x != 0 || y != 1000 {
		t.Errorf("expected (0, 1000), got (%f, %f)", x, y)
	}
	// Open water is left alone
	x, y = e.Contain(100, 100)
	if x != 100 || y != 100 {
		t.Errorf("expected (100, 100), got (%f, %f)", x, y)
	}
}

func TestVesselIslandsBounceAndDamp(t *testing.T) {
	e := NewCollisionEngine(testWorld(), time.Second)
	v := Vessel{ID: "a", X: 610, Y: 500, Speed: 4}
	tr, hits := e.VesselIslands(&v)
	if hits != 1 {
		t.Fatalf("expected 1 island hit, got %d", hits)
	}
	if math.Abs(v.Speed-4*islandSpeedDamping) > 1e-9 {
		t.Errorf("expected damped speed %f, got %f", 4*islandSpeedDamping, v.Speed)
	}
	// The bounce alone leaves it inside, so push-out decides the rest position
	if math.Abs(v.X-625) > 1e-9 || math.Abs(v.Y-500) > 1e-9 {
		t.Errorf("expected (625, 500), got (%f, %f)", v.X, v.Y)
	}
	if tr.FromX != 610 || tr.ToX != v.X || !tr.Moved() || tr.Duration != BounceDuration {
		t.Errorf("unexpected transition %+v", tr)
	}
	if st := tr.ToState(); st.DurationMs != BounceDuration.Milliseconds() {
		t.Errorf("expected %dms, got %d", BounceDuration.Milliseconds(), st.DurationMs)
	}
}

func TestVesselIslandsOpenWater(t *testing.T) {
	e := NewCollisionEngine(testWorld(), time.Second)
	v := Vessel{ID: "a", X: 100, Y: 100, Speed: 3}
	tr, hits := e.VesselIslands(&v)
	if hits != 0 || tr.Moved() || v.Speed != 3 {
		t.Errorf("open water should not touch the vessel: hits=%d tr=%+v speed=%f", hits, tr, v.Speed)
	}
}

func TestProjectileHitFirstMatchSkipsShooter(t *testing.T) {
	e := NewCollisionEngine(testWorld(), time.Second)
	p := NewProjectile("p1", "a", 0, 0, 100, 0, 1)
	p.Advance(1)
	vessels := []Vessel{
		{ID: "a", X: 100, Y: 0}, // shooter sits on the target
		{ID: "b", X: 105, Y: 0},
		{ID: "c", X: 100, Y: 5},
	}
	victim, ok := e.ProjectileHit(p, vessels)
	if !ok || victim != "b" {
		t.Errorf("expected b hit, got %q %v", victim, ok)
	}

	_, ok = e.ProjectileHit(p, []Vessel{{ID: "d", X: 300, Y: 300}})
	if ok {
		t.Error("distant vessel should not be hit")
	}
}

func TestVesselVesselBounceAndCooldown(t *testing.T) {
	e := NewCollisionEngine(testWorld(), time.Second)
	t0 := time.Unix(1000, 0)
	a := Vessel{ID: "a", X: 0, Y: 0, Speed: 2}
	b := Vessel{ID: "b", X: 30, Y: 0, Speed: 2}

	c, ok := e.VesselVessel(a, b, t0)
	if !ok {
		t.Fatal("vessels 30px apart should collide")
	}
	if !c.Announce {
		t.Error("first contact should be announced")
	}
	// a is pushed away from b, along -X, with force (2+2)*0.5
	if math.Abs(c.BounceX+2) > 1e-9 || math.Abs(c.BounceY) > 1e-9 {
		t.Errorf("expected bounce (-2, 0), got (%f, %f)", c.BounceX, c.BounceY)
	}

	// Bounce continues inside the cooldown, announcements do not
	c, ok = e.VesselVessel(b, a, t0.Add(500*time.Millisecond))
	if !ok || c.Announce {
		t.Errorf("expected silent bounce inside cooldown, got ok=%v announce=%v", ok, c.Announce)
	}
	if c.BounceX <= 0 {
		t.Errorf("b should bounce along +X, got %f", c.BounceX)
	}

	c, _ = e.VesselVessel(a, b, t0.Add(1100*time.Millisecond))
	if !c.Announce {
		t.Error("contact after the cooldown should be announced")
	}

	e.Forget("a")
	c, _ = e.VesselVessel(a, b, t0.Add(1200*time.Millisecond))
	if !c.Announce {
		t.Error("forgotten pair should be announced again")
	}
}

func TestVesselVesselBounceForceCapped(t *testing.T) {
	e := NewCollisionEngine(testWorld(), time.Second)
	c, _ := e.VesselVessel(Vessel{ID: "a", Speed: 50}, Vessel{ID: "b", X: 0, Y: 10, Speed: 50}, time.Unix(0, 0))
	if f := math.Hypot(c.BounceX, c.BounceY); math.Abs(f-vesselBounceMax) > 1e-9 {
		t.Errorf("expected capped force %f, got %f", vesselBounceMax, f)
	}

	if _, ok := e.VesselVessel(Vessel{ID: "a"}, Vessel{ID: "b", X: 40}, time.Unix(0, 0)); ok {
		t.Error("vessels exactly 40px apart should not collide")
	}
}
