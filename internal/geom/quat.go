package geom

import "github.com/chewxy/math32"

// Euler is a rotation in radians applied in X, Y, Z order.
type Euler struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Quat is a unit quaternion.
type Quat struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
	W float32 `json:"w"`
}

// Identity returns the identity rotation.
func Identity() Quat {
	return Quat{W: 1}
}

// QuatFromEuler converts e (XYZ order) to a quaternion.
func QuatFromEuler(e Euler) Quat {
	c1, s1 := math32.Cos(e.X/2), math32.Sin(e.X/2)
	c2, s2 := math32.Cos(e.Y/2), math32.Sin(e.Y/2)
	c3, s3 := math32.Cos(e.Z/2), math32.Sin(e.Z/2)

	return Quat{
		X: s1*c2*c3 + c1*s2*s3,
		Y: c1*s2*c3 - s1*c2*s3,
		Z: c1*c2*s3 + s1*s2*c3,
		W: c1*c2*c3 - s1*s2*s3,
	}
}

// QuatFromYawPitch builds the rotation that first pitches about X and then
// yaws about Y. A plane facing +Z ends up facing the direction
// (cos(pitch)*sin(yaw), -sin(pitch), cos(pitch)*cos(yaw)).
func QuatFromYawPitch(yaw, pitch float32) Quat {
	qy := Quat{Y: math32.Sin(yaw / 2), W: math32.Cos(yaw / 2)}
	qx := Quat{X: math32.Sin(pitch / 2), W: math32.Cos(pitch / 2)}
	return qy.Mul(qx)
}

// Mul returns the Hamilton product q*o (apply o, then q).
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

// Dot returns the four-component dot product.
func (q Quat) Dot(o Quat) float32 {
	return q.X*o.X + q.Y*o.Y + q.Z*o.Z + q.W*o.W
}

// Normalize returns q scaled to unit length.
func (q Quat) Normalize() Quat {
	l := math32.Sqrt(q.Dot(q))
	if l == 0 {
		return Identity()
	}
	return Quat{q.X / l, q.Y / l, q.Z / l, q.W / l}
}

// Angle returns the rotation angle between q and o in radians.
func (q Quat) Angle(o Quat) float32 {
	d := math32.Abs(q.Dot(o))
	if d >= 1 {
		return 0
	}
	return 2 * math32.Acos(d)
}

// Slerp rotates q toward o by t along the shortest arc. t >= 1 returns o.
func Slerp(q, o Quat, t float32) Quat {
	if t >= 1 {
		return o
	}
	if t <= 0 || q == o {
		return q
	}

	cos := q.Dot(o)
	if cos < 0 {
		o = Quat{-o.X, -o.Y, -o.Z, -o.W}
		cos = -cos
	}

	// Nearly parallel: fall back to nlerp.
	if cos > 0.9995 {
		return Quat{
			q.X + (o.X-q.X)*t,
			q.Y + (o.Y-q.Y)*t,
			q.Z + (o.Z-q.Z)*t,
			q.W + (o.W-q.W)*t,
		}.Normalize()
	}

	theta := math32.Acos(cos)
	sin := math32.Sin(theta)
	a := math32.Sin((1-t)*theta) / sin
	b := math32.Sin(t*theta) / sin

	return Quat{
		q.X*a + o.X*b,
		q.Y*a + o.Y*b,
		q.Z*a + o.Z*b,
		q.W*a + o.W*b,
	}
}
