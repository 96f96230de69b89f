package lidar

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MountPose places the sensor on the platform: translation in meters and
// heading in radians, all in the platform frame.
type MountPose struct {
	X     float64
	Y     float64
	Theta float64
}

// SensorMount is the rigid sensor→platform transform and its inverse, kept
// as 3×3 homogeneous matrices. It is immutable once built.
type SensorMount struct {
	pose       MountPose
	toPlatform *mat.Dense
	toSensor   *mat.Dense
}

// NewSensorMount builds the homogeneous transform for pose and inverts it.
func NewSensorMount(pose MountPose) (*SensorMount, error) {
	c, s := math.Cos(pose.Theta), math.Sin(pose.Theta)
	toPlatform := mat.NewDense(3, 3, []float64{
		c, -s, pose.X,
		s, c, pose.Y,
		0, 0, 1,
	})

	var toSensor mat.Dense
	if err := toSensor.Inverse(toPlatform); err != nil {
		return nil, fmt.Errorf("sensor mount %+v is not invertible: %w", pose, err)
	}

	return &SensorMount{
		pose:       pose,
		toPlatform: toPlatform,
		toSensor:   &toSensor,
	}, nil
}

// IdentityMount returns a mount with the sensor at the platform origin.
func IdentityMount() *SensorMount {
	m, err := NewSensorMount(MountPose{})
	if err != nil {
		// the identity is always invertible
		panic(err)
	}
	return m
}

// Pose returns the pose the mount was built from.
func (m *SensorMount) Pose() MountPose {
	return m.pose
}

// IsIdentity reports whether the mount has no rotation or translation.
func (m *SensorMount) IsIdentity() bool {
	return m.pose == MountPose{}
}

// ToPlatform maps a sensor-frame point into the platform frame.
func (m *SensorMount) ToPlatform(x, y float64) (float64, float64) {
	return applyHomogeneous(m.toPlatform, x, y)
}

// ToSensor maps a platform-frame point into the sensor frame.
func (m *SensorMount) ToSensor(x, y float64) (float64, float64) {
	return applyHomogeneous(m.toSensor, x, y)
}

// Compensate moves a sensor-frame polar sample through the platform motion
// d: sensor→platform, the motion delta, then platform→sensor. It returns
// the compensated range and angle (radians, (-π, π]).
func (m *SensorMount) Compensate(r, angle float64, d MotionDelta) (float64, float64) {
	var platformMotion, composite mat.Dense
	platformMotion.Mul(motionMatrix(d), m.toPlatform)
	composite.Mul(m.toSensor, &platformMotion)

	x, y := PolarToCartesian(r, angle)
	x, y = applyHomogeneous(&composite, x, y)
	return CartesianToPolar(x, y)
}

// motionMatrix is the homogeneous transform for one point's motion delta.
func motionMatrix(d MotionDelta) *mat.Dense {
	c, s := math.Cos(d.DTheta), math.Sin(d.DTheta)
	return mat.NewDense(3, 3, []float64{
		c, s, d.DX,
		-s, c, d.DY,
		0, 0, 1,
	})
}

func applyHomogeneous(t mat.Matrix, x, y float64) (float64, float64) {
	var out mat.VecDense
	out.MulVec(t, mat.NewVecDense(3, []float64{x, y, 1}))
	return out.AtVec(0), out.AtVec(1)
}
