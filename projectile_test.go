package main

import (
	"math"
	"testing"
)

func TestProjectileArrivesExactlyAtTarget(t *testing.T) {
	p := NewProjectile("p1", "s1", 0, 0, 100, 0, 2)
	if p.Advance(1.5) {
		t.Error("projectile should still be in flight at 1.5s")
	}
	if !p.Advance(0.5) {
		t.Error("projectile should arrive at 2s")
	}
	x, y := p.Position()
	if x != 100 || y != 0 {
		t.Errorf("expected (100, 0) at arrival, got (%f, %f)", x, y)
	}
}

func TestProjectileApexAtMidFlight(t *testing.T) {
	p := NewProjectile("p1", "s1", 0, 0, 100, 0, 2)
	if p.ArcHeight != 25 {
		t.Fatalf("expected arc height 25, got %f", p.ArcHeight)
	}
	p.Advance(1)
	x, y := p.Position()
	if math.Abs(x-50) > 1e-9 || math.Abs(y+p.ArcHeight) > 1e-9 {
		t.Errorf("expected (50, %f) at mid-flight, got (%f, %f)", -p.ArcHeight, x, y)
	}
}

func TestProjectileArcHeightCapped(t *testing.T) {
	p := NewProjectile("p1", "s1", 0, 0, 2000, 0, 4)
	if p.ArcHeight != MaxArcHeight {
		t.Errorf("expected arc height %f, got %f", MaxArcHeight, p.ArcHeight)
	}
}

func TestProjectileScaleProfile(t *testing.T) {
	p := NewProjectile("p1", "s1", 0, 0, 100, 0, 2)
	if s := p.Scale(); math.Abs(s-1) > 1e-9 {
		t.Errorf("expected scale 1 at launch, got %f", s)
	}
	p.Advance(1)
	if s := p.Scale(); math.Abs(s-ProjectilePeakScale) > 1e-9 {
		t.Errorf("expected peak scale %f, got %f", ProjectilePeakScale, s)
	}
	p.Advance(1)
	if s := p.Scale(); math.Abs(s-1) > 1e-9 {
		t.Errorf("expected scale 1 on arrival, got %f", s)
	}
}

func TestProjectileFlightTime(t *testing.T) {
	if ft := FlightTimeFor(0, 0, 1000, 0); math.Abs(ft-2) > 1e-9 {
		t.Errorf("expected 2s for 1000px, got %f", ft)
	}
	if ft := FlightTimeFor(0, 0, 10, 0); ft != MinFlightTime {
		t.Errorf("short shots should use the minimum flight time, got %f", ft)
	}
}

func TestProjectileIgnoresWorldBounds(t *testing.T) {
	// Flight is bounded by time, not space: a target outside any world is fine
	p := NewProjectile("p1", "s1", 0, 0, -500, -500, 1)
	p.Advance(0.5)
	if p.Arrived() {
		t.Error("projectile should not be removed before its flight time")
	}
	p.Advance(0.5)
	x, y := p.Position()
	if x != -500 || y != -500 {
		t.Errorf("expected target (-500, -500), got (%f, %f)", x, y)
	}
}

func TestProjectileToState(t *testing.T) {
	p := NewProjectile("p1", "s1", 0, 0, 100, 0, 2)
	p.Advance(2)
	st := p.ToState()
	if st.ID != "p1" || st.Shooter != "s1" {
		t.Errorf("unexpected ids %q %q", st.ID, st.Shooter)
	}
	if st.X != 100 || st.Y != 0 {
		t.Errorf("expected (100, 0), got (%f, %f)", st.X, st.Y)
	}
}
