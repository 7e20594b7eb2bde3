package camera

// Pinhole is the standard projective camera with radial-tangential
// (plumb bob) distortion.
type Pinhole struct {
	name          string
	width, height int

	fx, fy, cx, cy float64
	k1, k2, p1, p2 float64

	noDistortion bool
}

// NewPinhole creates a pinhole model. Passing all-zero distortion
// coefficients selects the fast undistorted path.
func NewPinhole(name string, width, height int, fx, fy, cx, cy, k1, k2, p1, p2 float64) *Pinhole {
	return &Pinhole{
		name:   name,
		width:  width,
		height: height,
		fx:     fx, fy: fy, cx: cx, cy: cy,
		k1: k1, k2: k2, p1: p1, p2: p2,
		noDistortion: k1 == 0 && k2 == 0 && p1 == 0 && p2 == 0,
	}
}

func (c *Pinhole) Name() string { return c.name }

func (c *Pinhole) ImageSize() (int, int) { return c.width, c.height }

// distortion returns the additive radial-tangential distortion term for a
// point on the normalized plane.
func (c *Pinhole) distortion(x, y float64) (dx, dy float64) {
	x2 := x * x
	y2 := y * y
	xy := x * y
	r2 := x2 + y2
	rad := c.k1*r2 + c.k2*r2*r2

	dx = x*rad + 2*c.p1*xy + c.p2*(r2+2*x2)
	dy = y*rad + c.p1*(r2+2*y2) + 2*c.p2*xy
	return dx, dy
}

// LiftProjective maps a distorted pixel to a ray. Distortion is inverted by
// fixed-point iteration on the forward model.
func (c *Pinhole) LiftProjective(p Point2) Point3 {
	mx := (p.X - c.cx) / c.fx
	my := (p.Y - c.cy) / c.fy

	if c.noDistortion {
		return Point3{X: mx, Y: my, Z: 1}
	}

	// 20 iterations bring the lift/project round trip well below 0.01 px
	// for the distortion magnitudes seen in calibrated lenses.
	ux, uy := mx, my
	for i := 0; i < 20; i++ {
		dx, dy := c.distortion(ux, uy)
		ux = mx - dx
		uy = my - dy
	}
	return Point3{X: ux, Y: uy, Z: 1}
}

// SpaceToPlane projects a camera-frame point to a distorted pixel.
func (c *Pinhole) SpaceToPlane(p Point3) Point2 {
	x := p.X / p.Z
	y := p.Y / p.Z

	if !c.noDistortion {
		dx, dy := c.distortion(x, y)
		x += dx
		y += dy
	}
	return Point2{
		X: c.fx*x + c.cx,
		Y: c.fy*y + c.cy,
	}
}
