package render

import "github.com/go-gl/mathgl/mgl32"

// OrbitController places a camera on a sphere around a target point.
type OrbitController struct {
	Target mgl32.Vec3
	Yaw    float32 // radians around +Y
	Pitch  float32 // radians above the horizon
	Radius float32

	MinRadius float32
	MaxRadius float32
}

// Apply positions cam according to the controller.
func (c *OrbitController) Apply(cam *Camera) {
	if cam == nil {
		return
	}
	r := c.Radius
	if r == 0 {
		r = 3
	}
	if c.MinRadius != 0 {
		r = max(r, c.MinRadius)
	}
	if c.MaxRadius != 0 {
		r = min(r, c.MaxRadius)
	}
	pitch := mgl32.Clamp(c.Pitch, -1.5, 1.5)

	// Spherical to Cartesian with Y up; yaw 0 looks down -Z.
	offset := mgl32.SphericalToCartesian(r, mgl32.DegToRad(90)-pitch, c.Yaw)
	cam.Eye = c.Target.Add(mgl32.Vec3{offset[1], offset[2], offset[0]})
	cam.Target = c.Target
	if cam.Up == (mgl32.Vec3{}) {
		cam.Up = mgl32.Vec3{0, 1, 0}
	}
}

// Rotate changes yaw and pitch.
func (c *OrbitController) Rotate(deltaYaw, deltaPitch float32) {
	c.Yaw += deltaYaw
	c.Pitch = mgl32.Clamp(c.Pitch+deltaPitch, -1.5, 1.5)
}

// Zoom changes the radius within the configured bounds.
func (c *OrbitController) Zoom(delta float32) {
	c.Radius += delta
	if c.MinRadius != 0 && c.Radius < c.MinRadius {
		c.Radius = c.MinRadius
	}
	if c.MaxRadius != 0 && c.Radius > c.MaxRadius {
		c.Radius = c.MaxRadius
	}
}
