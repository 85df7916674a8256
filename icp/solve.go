package icp

import "gonum.org/v1/gonum/mat"

// solveNormalEquations solves the least-squares system built from rows
// (each a 6-vector Jacobian row) and rhs (the matching residuals) via the
// normal equations A^T A x = A^T b, returning false if the solve fails. A
// small ridge term on the diagonal keeps the system solvable when the rows
// leave some directions unconstrained (e.g. sliding along a flat surface);
// those directions receive a (near) zero increment.
func solveNormalEquations(rows [][6]float64, rhs []float64) ([6]float64, bool) {
	n := len(rows)
	aData := make([]float64, n*6)
	for i, row := range rows {
		copy(aData[i*6:i*6+6], row[:])
	}
	A := mat.NewDense(n, 6, aData)
	b := mat.NewVecDense(n, rhs)

	var ata mat.Dense
	ata.Mul(A.T(), A)
	for i := 0; i < 6; i++ {
		ata.Set(i, i, ata.At(i, i)+1e-6)
	}
	var atb mat.VecDense
	atb.MulVec(A.T(), b)

	var x mat.VecDense
	if err := x.SolveVec(&ata, &atb); err != nil {
		return [6]float64{}, false
	}

	var out [6]float64
	for i := 0; i < 6; i++ {
		out[i] = x.AtVec(i)
	}
	return out, true
}
