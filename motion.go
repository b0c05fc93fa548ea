package main

import "math"

// Vessel kinematics are expressed per tick (one tick = 1/60 s).
const (
	ShipAcceleration  = 0.2  // speed units per tick
	ShipMaxSpeed      = 5.0  // pixels per tick
	ShipRotationSpeed = 0.05 // radians per tick
	ShipFriction      = 0.98 // speed multiplier per tick without throttle
)

// Vessel is the kinematic state of one ship
type Vessel struct {
	ID       string
	X, Y     float64
	Rotation float64
	Speed    float64 // signed, negative when reversing
}

// Controls are the inputs held during a tick
type Controls struct {
	Left    bool
	Right   bool
	Forward bool
	Reverse bool
	// Aim steers toward (AimX, AimY) instead of using Left/Right
	Aim        bool
	AimX, AimY float64
}

// StepVessel advances v by delta ticks under the given controls
func StepVessel(v *Vessel, c Controls, delta float64) {
	maxTurn := ShipRotationSpeed * delta
	if c.Aim {
		target := math.Atan2(c.AimY-v.Y, c.AimX-v.X)
		diff := NormalizeAngle(target - v.Rotation)
		v.Rotation += Clamp(diff, -maxTurn, maxTurn)
	} else {
		if c.Left {
			v.Rotation -= maxTurn
		}
		if c.Right {
			v.Rotation += maxTurn
		}
	}

	switch {
	case c.Forward:
		v.Speed = math.Min(v.Speed+ShipAcceleration*delta, ShipMaxSpeed)
	case c.Reverse:
		v.Speed = math.Max(v.Speed-ShipAcceleration*delta, -ShipMaxSpeed/2)
	default:
		v.Speed *= math.Pow(ShipFriction, delta)
	}

	v.X += math.Cos(v.Rotation) * v.Speed
	v.Y += math.Sin(v.Rotation) * v.Speed
}
