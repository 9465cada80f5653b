package track

// CovarianceDim is the size of the free parameter vector
// (x, y, z, tx, ty, tz, q/p).
const CovarianceDim = 7

type Covariance [CovarianceDim][CovarianceDim]float64

type Jacobian [CovarianceDim][CovarianceDim]float64

func Identity() Jacobian {
	var j Jacobian
	for i := 0; i < CovarianceDim; i++ {
		j[i][i] = 1
	}
	return j
}

// DiagonalCovariance builds a covariance from per-parameter standard deviations.
func DiagonalCovariance(sigmas [CovarianceDim]float64) Covariance {
	var c Covariance
	for i, s := range sigmas {
		c[i][i] = s * s
	}
	return c
}

// Transport returns J * C * J^T.
func (c Covariance) Transport(j Jacobian) Covariance {
	var tmp, out Covariance
	for i := 0; i < CovarianceDim; i++ {
		for k := 0; k < CovarianceDim; k++ {
			if j[i][k] == 0 {
				continue
			}
			for l := 0; l < CovarianceDim; l++ {
				tmp[i][l] += j[i][k] * c[k][l]
			}
		}
	}
	for i := 0; i < CovarianceDim; i++ {
		for l := 0; l < CovarianceDim; l++ {
			sum := 0.0
			for k := 0; k < CovarianceDim; k++ {
				sum += tmp[i][k] * j[l][k]
			}
			out[i][l] = sum
		}
	}
	return out
}

// Mul returns j * o, used to accumulate the transport over several steps.
func (j Jacobian) Mul(o Jacobian) Jacobian {
	var out Jacobian
	for i := 0; i < CovarianceDim; i++ {
		for k := 0; k < CovarianceDim; k++ {
			if j[i][k] == 0 {
				continue
			}
			for l := 0; l < CovarianceDim; l++ {
				out[i][l] += j[i][k] * o[k][l]
			}
		}
	}
	return out
}

// StraightLineJacobian is the transport of free parameters over a straight
// segment of signed length h.
func StraightLineJacobian(h float64) Jacobian {
	j := Identity()
	for i := 0; i < 3; i++ {
		j[i][3+i] = h
	}
	return j
}
