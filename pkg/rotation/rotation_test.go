package rotation

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

var allOrders = []Order{XYZ, XZY, YXZ, YZX, ZXY, ZYX}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		in      string
		want    Order
		wantErr bool
	}{
		{in: "zxy", want: ZXY},
		{in: " XYZ ", want: XYZ},
		{in: "XXY", wantErr: true},
		{in: "XY", wantErr: true},
		{in: "ABC", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOrder(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOrder(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseOrder(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseChannels(t *testing.T) {
	o, err := ParseChannels([]string{"Xposition", "Yposition", "Zposition", "Zrotation", "Xrotation", "Yrotation"})
	if err != nil {
		t.Fatalf("ParseChannels failed: %v", err)
	}
	if o != ZXY {
		t.Errorf("Expected ZXY, got %v", o)
	}
}

func TestEulerRoundTrip(t *testing.T) {
	angles := [][3]float64{
		{10, 20, 30},
		{-45, 12, 170},
		{90, -60, -120},
		{0, 0, 0},
		{179, 89, -179},
	}

	for _, o := range allOrders {
		for _, a := range angles {
			q := FromEuler(a, o)
			back := ToEuler(q, o)
			q2 := FromEuler(back, o)
			if Angle(q, q2) > 1e-9 {
				t.Errorf("%s %v: round trip produced %v (angle error %g)", o, a, back, Angle(q, q2))
			}
		}
	}
}

func TestEulerGimbalLock(t *testing.T) {
	for _, o := range allOrders {
		q := FromEuler([3]float64{30, 90, 20}, o)
		back := ToEuler(q, o)
		if math.Abs(back[2]) > 1e-9 {
			t.Errorf("%s: expected last angle 0 at gimbal lock, got %v", o, back)
		}
		if Angle(q, FromEuler(back, o)) > 1e-6 {
			t.Errorf("%s: gimbal decomposition does not reproduce rotation: %v", o, back)
		}
	}
}

func TestEulerSingleAxisMatchesChannel(t *testing.T) {
	q := FromEuler([3]float64{0, 0, 90}, XYZ)
	v := Rotate(q, r3.Vec{X: 1})
	if math.Abs(v.Y-1) > 1e-12 {
		t.Errorf("90° about Z should map X to Y, got %+v", v)
	}
}

func TestAxisAngleRoundTrip(t *testing.T) {
	vecs := []r3.Vec{
		{X: 0.3, Y: -0.2, Z: 0.1},
		{X: 0, Y: 3.0, Z: 0},
		{X: 1e-14, Y: 0, Z: 0},
		{},
	}
	for _, v := range vecs {
		back := ToAxisAngle(FromAxisAngle(v))
		if r3.Norm(r3.Sub(v, back)) > 1e-9 {
			t.Errorf("axis-angle %+v round trip produced %+v", v, back)
		}
	}
}

func TestHeading(t *testing.T) {
	for _, deg := range []float64{0, 45, 90, -135, 179} {
		h := Heading(FromYaw(Radians(deg)))
		if math.Abs(AngleDiff(h, Radians(deg))) > 1e-9 {
			t.Errorf("Heading(FromYaw(%v°)) = %v°", deg, Degrees(h))
		}
	}

	// Yaw of 90° turns forward (+Z) into +X.
	v := Rotate(FromYaw(math.Pi/2), r3.Vec{Z: 1})
	if math.Abs(v.X-1) > 1e-12 {
		t.Errorf("FromYaw(90°) should face +X, got %+v", v)
	}

	tilted := Mul(FromYaw(Radians(60)), FromEuler([3]float64{20, 0, 10}, XYZ))
	stripped := RemoveHeading(tilted)
	if math.Abs(Heading(stripped)) > 1e-9 {
		t.Errorf("RemoveHeading left heading %v°", Degrees(Heading(stripped)))
	}
}

func TestAngleDiff(t *testing.T) {
	tests := []struct {
		name     string
		from, to float64
		want     float64
	}{
		{"zero to 350", 0, 350, -10},
		{"10 to 200", 10, 200, -170},
		{"350 to 10", 350, 10, 20},
		{"tie goes positive", 0, 180, 180},
		{"tie from 90", 90, 270, 180},
		{"tie negative direction", 180, 0, 180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Degrees(AngleDiff(Radians(tt.from), Radians(tt.to)))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("AngleDiff(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestWrapAngle(t *testing.T) {
	for _, in := range []float64{-7, -math.Pi, 0, math.Pi, 4, 13} {
		w := WrapAngle(in)
		if w <= -math.Pi || w > math.Pi {
			t.Errorf("WrapAngle(%v) = %v out of range", in, w)
		}
		if math.Abs(math.Sin(w)-math.Sin(in)) > 1e-12 || math.Abs(math.Cos(w)-math.Cos(in)) > 1e-12 {
			t.Errorf("WrapAngle(%v) = %v is not the same angle", in, w)
		}
	}
}

func TestSlerp(t *testing.T) {
	a := Identity()
	b := FromYaw(math.Pi / 2)
	mid := Slerp(a, b, 0.5)
	if math.Abs(Heading(mid)-math.Pi/4) > 1e-9 {
		t.Errorf("Slerp midpoint heading = %v°, want 45°", Degrees(Heading(mid)))
	}
}
