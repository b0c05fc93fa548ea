package main

import (
	"math"
	"testing"
)

func TestStepVesselAccelerates(t *testing.T) {
	v := Vessel{}
	StepVessel(&v, Controls{Forward: true}, 1)
	if math.Abs(v.Speed-ShipAcceleration) > 1e-9 {
		t.Errorf("expected speed %f, got %f", ShipAcceleration, v.Speed)
	}
	// Facing right, so only X changes
	if math.Abs(v.X-ShipAcceleration) > 1e-9 || v.Y != 0 {
		t.Errorf("expected position (%f, 0), got (%f, %f)", ShipAcceleration, v.X, v.Y)
	}
}

func TestStepVesselSpeedCaps(t *testing.T) {
	v := Vessel{}
	for i := 0; i < 100; i++ {
		StepVessel(&v, Controls{Forward: true}, 1)
	}
	if v.Speed != ShipMaxSpeed {
		t.Errorf("forward speed should cap at %f, got %f", ShipMaxSpeed, v.Speed)
	}

	v = Vessel{}
	for i := 0; i < 100; i++ {
		StepVessel(&v, Controls{Reverse: true}, 1)
	}
	if v.Speed != -ShipMaxSpeed/2 {
		t.Errorf("reverse speed should cap at %f, got %f", -ShipMaxSpeed/2, v.Speed)
	}
}

func TestStepVesselFriction(t *testing.T) {
	v := Vessel{Speed: 5}
	StepVessel(&v, Controls{}, 1)
	if math.Abs(v.Speed-5*ShipFriction) > 1e-9 {
		t.Errorf("expected %f after one tick, got %f", 5*ShipFriction, v.Speed)
	}

	// Two ticks at once decay the same as two single ticks
	a := Vessel{Speed: 4}
	b := Vessel{Speed: 4}
	StepVessel(&a, Controls{}, 2)
	StepVessel(&b, Controls{}, 1)
	StepVessel(&b, Controls{}, 1)
	if math.Abs(a.Speed-b.Speed) > 1e-9 {
		t.Errorf("friction over 2 ticks: %f vs %f", a.Speed, b.Speed)
	}
}

func TestStepVesselTurnInputs(t *testing.T) {
	v := Vessel{}
	StepVessel(&v, Controls{Right: true}, 1)
	if math.Abs(v.Rotation-ShipRotationSpeed) > 1e-9 {
		t.Errorf("expected rotation %f, got %f", ShipRotationSpeed, v.Rotation)
	}
	StepVessel(&v, Controls{Left: true}, 2)
	if math.Abs(v.Rotation+ShipRotationSpeed) > 1e-9 {
		t.Errorf("expected rotation %f, got %f", -ShipRotationSpeed, v.Rotation)
	}
}

func TestStepVesselAimTakesShorterDirection(t *testing.T) {
	// Facing just below +PI, target just above -PI: the short way is to keep
	// turning positive across the seam.
	v := Vessel{Rotation: 3.0}
	StepVessel(&v, Controls{Aim: true, AimX: math.Cos(-3.0) * 100, AimY: math.Sin(-3.0) * 100}, 1)
	if math.Abs(v.Rotation-(3.0+ShipRotationSpeed)) > 1e-9 {
		t.Errorf("expected rotation %f, got %f", 3.0+ShipRotationSpeed, v.Rotation)
	}

	// A small difference is closed exactly without overshoot
	v = Vessel{Rotation: 0}
	target := 0.01
	StepVessel(&v, Controls{Aim: true, AimX: math.Cos(target) * 100, AimY: math.Sin(target) * 100}, 1)
	if math.Abs(v.Rotation-target) > 1e-9 {
		t.Errorf("expected rotation %f, got %f", target, v.Rotation)
	}
}

func TestNormalizeAngle(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi, math.Pi},
		{-3 * math.Pi / 2, math.Pi / 2},
	}
	for _, c := range cases {
		if got := NormalizeAngle(c.in); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("NormalizeAngle(%f) = %f, want %f", c.in, got, c.want)
		}
	}
}
