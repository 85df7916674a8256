package integrator

// pointWeight derives the per-point weight w_p from the configured policy,
// the range from sensor to the observed point, and the clipped signed
// distance sdf at the voxel currently being updated.
func pointWeight(policy WeightPolicy, rangeToSensor, sdf, truncDist float64) float64 {
	switch policy {
	case ConstantWeight:
		return 1
	case InverseSquareWeight:
		return inverseSquare(rangeToSensor)
	case InverseSquareDropoffWeight:
		return inverseSquare(rangeToSensor) * dropoff(sdf, truncDist)
	default:
		return 1
	}
}

func inverseSquare(rangeToSensor float64) float64 {
	if rangeToSensor < 1e-6 {
		rangeToSensor = 1e-6
	}
	return 1 / (rangeToSensor * rangeToSensor)
}

// dropoff ramps the weight to zero as sdf approaches -truncDist (the far
// side of the truncation band, behind the observed surface), and leaves it
// untouched in front of the surface.
func dropoff(sdf, truncDist float64) float64 {
	if sdf >= 0 || truncDist <= 0 {
		return 1
	}
	f := (truncDist + sdf) / truncDist
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
