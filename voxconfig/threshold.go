package voxconfig

// ExceedsFloat reports whether an Optional[float64] axis is both set and
// exceeded by x. An unset axis never triggers, matching "unset means no
// limit."
func ExceedsFloat(o Optional[float64], x float64) bool {
	v, ok := o.Value()
	return ok && x > v
}

// ExceedsInt reports whether an Optional[int] axis is both set and exceeded
// by x.
func ExceedsInt(o Optional[int], x int) bool {
	v, ok := o.Value()
	return ok && x > v
}
