package camera

import "math"

// Mei is the omnidirectional (unified sphere) model: a projection onto the
// unit sphere followed by a pinhole projection offset by the mirror
// parameter xi, with radial-tangential distortion on the normalized plane.
type Mei struct {
	name          string
	width, height int

	xi                     float64
	k1, k2, p1, p2         float64
	gamma1, gamma2, u0, v0 float64

	noDistortion bool
}

// NewMei creates an omnidirectional model.
func NewMei(name string, width, height int, xi, k1, k2, p1, p2, gamma1, gamma2, u0, v0 float64) *Mei {
	return &Mei{
		name:   name,
		width:  width,
		height: height,
		xi:     xi,
		k1:     k1, k2: k2, p1: p1, p2: p2,
		gamma1: gamma1, gamma2: gamma2, u0: u0, v0: v0,
		noDistortion: k1 == 0 && k2 == 0 && p1 == 0 && p2 == 0,
	}
}

func (c *Mei) Name() string { return c.name }

func (c *Mei) ImageSize() (int, int) { return c.width, c.height }

func (c *Mei) distortion(x, y float64) (dx, dy float64) {
	x2 := x * x
	y2 := y * y
	xy := x * y
	r2 := x2 + y2
	rad := c.k1*r2 + c.k2*r2*r2

	dx = x*rad + 2*c.p1*xy + c.p2*(r2+2*x2)
	dy = y*rad + c.p1*(r2+2*y2) + 2*c.p2*xy
	return dx, dy
}

// LiftProjective maps a distorted pixel to a ray whose Z component already
// accounts for the mirror offset.
func (c *Mei) LiftProjective(p Point2) Point3 {
	mx := (p.X - c.u0) / c.gamma1
	my := (p.Y - c.v0) / c.gamma2

	if !c.noDistortion {
		ux, uy := mx, my
		for i := 0; i < 8; i++ {
			dx, dy := c.distortion(ux, uy)
			ux = mx - dx
			uy = my - dy
		}
		mx, my = ux, uy
	}

	rho2 := mx*mx + my*my
	lambda := (c.xi + math.Sqrt(1+(1-c.xi*c.xi)*rho2)) / (1 + rho2)

	return Point3{
		X: lambda * mx,
		Y: lambda * my,
		Z: lambda - c.xi,
	}
}

// SpaceToPlane projects a camera-frame point to a distorted pixel.
func (c *Mei) SpaceToPlane(p Point3) Point2 {
	norm := math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
	z := p.Z + c.xi*norm
	x := p.X / z
	y := p.Y / z

	if !c.noDistortion {
		dx, dy := c.distortion(x, y)
		x += dx
		y += dy
	}
	return Point2{
		X: c.gamma1*x + c.u0,
		Y: c.gamma2*y + c.v0,
	}
}
