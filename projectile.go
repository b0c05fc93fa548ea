package main

import "math"

const (
	ProjectileSpeed     = 500.0 // pixels/s along the ground track
	MinFlightTime       = 0.25  // seconds
	MaxArcHeight        = 200.0
	ProjectilePeakScale = 2.0 // size multiplier at the top of the arc
)

// Projectile is a cannonball on a ballistic arc. It lives until its flight
// time runs out, regardless of where the arc goes.
type Projectile struct {
	ID        string
	ShooterID string
	StartX    float64
	StartY    float64
	TargetX   float64
	TargetY   float64
	Angle     float64
	Elapsed   float64 // seconds
	Total     float64 // seconds
	ArcHeight float64
}

// FlightTimeFor returns the flight time of a shot covering the given track
func FlightTimeFor(sx, sy, tx, ty float64) float64 {
	return math.Max(Distance(sx, sy, tx, ty)/ProjectileSpeed, MinFlightTime)
}

// NewProjectile creates a projectile flying from (sx,sy) to (tx,ty) in total seconds
func NewProjectile(id, shooterID string, sx, sy, tx, ty, total float64) *Projectile {
	dist := Distance(sx, sy, tx, ty)
	return &Projectile{
		ID:        id,
		ShooterID: shooterID,
		StartX:    sx,
		StartY:    sy,
		TargetX:   tx,
		TargetY:   ty,
		Angle:     math.Atan2(ty-sy, tx-sx),
		Total:     total,
		ArcHeight: math.Min(dist/4, MaxArcHeight),
	}
}

// Progress returns the normalized flight progress in [0, 1]
func (p *Projectile) Progress() float64 {
	if p.Total <= 0 {
		return 1
	}
	return Clamp(p.Elapsed/p.Total, 0, 1)
}

// Position evaluates the quadratic Bezier arc at the current progress.
// The control point sits 2*ArcHeight above the midpoint so the apex of the
// curve is exactly ArcHeight above the ground track.
func (p *Projectile) Position() (float64, float64) {
	t := p.Progress()
	if t >= 1 {
		return p.TargetX, p.TargetY
	}
	cx := (p.StartX + p.TargetX) / 2
	cy := (p.StartY+p.TargetY)/2 - 2*p.ArcHeight
	u := 1 - t
	x := u*u*p.StartX + 2*u*t*cx + t*t*p.TargetX
	y := u*u*p.StartY + 2*u*t*cy + t*t*p.TargetY
	return x, y
}

// Scale is the visual size multiplier: a triangle peaking at mid-flight
func (p *Projectile) Scale() float64 {
	t := p.Progress()
	return 1 + (ProjectilePeakScale-1)*(1-math.Abs(2*t-1))
}

// Arrived reports whether the flight time has run out
func (p *Projectile) Arrived() bool {
	return p.Elapsed >= p.Total
}

// Advance moves the projectile dt seconds along its arc and reports arrival
func (p *Projectile) Advance(dt float64) bool {
	p.Elapsed += dt
	return p.Arrived()
}

// ToState converts to protocol state
func (p *Projectile) ToState() ProjectileState {
	x, y := p.Position()
	return ProjectileState{
		ID:      p.ID,
		Shooter: p.ShooterID,
		X:       x,
		Y:       y,
		Scale:   p.Scale(),
	}
}
