package camera

import "math"

// Fisheye is the equidistant (Kannala-Brandt) fisheye model. The radial
// mapping is an odd polynomial in the incidence angle theta:
//
//	r(theta) = theta + k2*theta^3 + k3*theta^5 + k4*theta^7 + k5*theta^9
type Fisheye struct {
	name          string
	width, height int

	k2, k3, k4, k5 float64
	mu, mv, u0, v0 float64
}

// NewFisheye creates an equidistant fisheye model.
func NewFisheye(name string, width, height int, k2, k3, k4, k5, mu, mv, u0, v0 float64) *Fisheye {
	return &Fisheye{
		name:   name,
		width:  width,
		height: height,
		k2:     k2, k3: k3, k4: k4, k5: k5,
		mu: mu, mv: mv, u0: u0, v0: v0,
	}
}

func (c *Fisheye) Name() string { return c.name }

func (c *Fisheye) ImageSize() (int, int) { return c.width, c.height }

func (c *Fisheye) r(theta float64) float64 {
	t2 := theta * theta
	return theta * (1 + t2*(c.k2+t2*(c.k3+t2*(c.k4+t2*c.k5))))
}

func (c *Fisheye) rPrime(theta float64) float64 {
	t2 := theta * theta
	return 1 + t2*(3*c.k2+t2*(5*c.k3+t2*(7*c.k4+t2*9*c.k5)))
}

// invertR solves r(theta) = rd by Newton iteration seeded with rd itself.
func (c *Fisheye) invertR(rd float64) float64 {
	theta := rd
	for i := 0; i < 10; i++ {
		d := c.rPrime(theta)
		if d == 0 {
			break
		}
		step := (c.r(theta) - rd) / d
		theta -= step
		if math.Abs(step) < 1e-10 {
			break
		}
	}
	return theta
}

// LiftProjective maps a distorted pixel to a unit-norm ray.
func (c *Fisheye) LiftProjective(p Point2) Point3 {
	px := (p.X - c.u0) / c.mu
	py := (p.Y - c.v0) / c.mv

	rd := math.Hypot(px, py)
	if rd < 1e-10 {
		return Point3{X: 0, Y: 0, Z: 1}
	}

	theta := c.invertR(rd)
	phi := math.Atan2(py, px)

	st := math.Sin(theta)
	return Point3{
		X: st * math.Cos(phi),
		Y: st * math.Sin(phi),
		Z: math.Cos(theta),
	}
}

// SpaceToPlane projects a camera-frame point to a distorted pixel.
func (c *Fisheye) SpaceToPlane(p Point3) Point2 {
	norm := math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
	theta := math.Acos(p.Z / norm)
	phi := math.Atan2(p.Y, p.X)

	r := c.r(theta)
	return Point2{
		X: c.mu*r*math.Cos(phi) + c.u0,
		Y: c.mv*r*math.Sin(phi) + c.v0,
	}
}
