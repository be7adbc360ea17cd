package stats

import "math"

// CDF returns P(X <= x) for the shifted gamma distribution.
func (g Gamma) CDF(x float64) float64 {
	z := (x - g.Loc) / g.Scale
	if z <= 0 {
		return 0
	}
	return regularizedLowerGamma(g.Shape, z)
}

// Quantile returns the p-quantile (inverse CDF) for p in (0, 1).
// It starts from the Wilson-Hilferty approximation and refines with Newton
// steps on the regularized incomplete gamma function.
func (g Gamma) Quantile(p float64) float64 {
	if p <= 0 {
		return g.Loc
	}
	if p >= 1 {
		return math.Inf(1)
	}

	a := g.Shape

	// Wilson-Hilferty starting point for the standard gamma(a, 1) quantile.
	zn := normalQuantile(p)
	c := 1.0 / (9.0 * a)
	x := a * math.Pow(1-c+zn*math.Sqrt(c), 3)
	if x <= 0 || math.IsNaN(x) {
		x = a * math.Exp((math.Log(p)+lgamma(a+1))/a)
		if x <= 0 {
			x = 1e-8
		}
	}

	// Newton iterations: f(x) = P(a, x) - p, f'(x) = x^(a-1) e^-x / Gamma(a).
	for i := 0; i < 60; i++ {
		f := regularizedLowerGamma(a, x) - p
		d := math.Exp((a-1)*math.Log(x) - x - lgamma(a))
		if d == 0 {
			break
		}
		step := f / d
		next := x - step
		if next <= 0 {
			next = x / 2
		}
		if math.Abs(next-x) <= 1e-12*(1+math.Abs(next)) {
			x = next
			break
		}
		x = next
	}

	return g.Loc + g.Scale*x
}

// regularizedLowerGamma computes P(a, x) = gamma(a, x) / Gamma(a) using the
// series expansion for x < a+1 and the continued fraction otherwise
// (Numerical Recipes gammp).
func regularizedLowerGamma(a, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x < a+1 {
		return lowerGammaSeries(a, x)
	}
	return 1 - upperGammaContinuedFraction(a, x)
}

func lowerGammaSeries(a, x float64) float64 {
	const (
		maxIter = 500
		eps     = 1e-15
	)

	ap := a
	sum := 1.0 / a
	del := sum
	for i := 0; i < maxIter; i++ {
		ap++
		del *= x / ap
		sum += del
		if math.Abs(del) < math.Abs(sum)*eps {
			break
		}
	}
	return sum * math.Exp(-x+a*math.Log(x)-lgamma(a))
}

func upperGammaContinuedFraction(a, x float64) float64 {
	const (
		maxIter = 500
		eps     = 1e-15
		tiny    = 1e-300
	)

	// Modified Lentz's method.
	b := x + 1 - a
	c := 1 / tiny
	d := 1 / b
	h := d
	for i := 1; i <= maxIter; i++ {
		an := -float64(i) * (float64(i) - a)
		b += 2
		d = an*d + b
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = b + an/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < eps {
			break
		}
	}
	return math.Exp(-x+a*math.Log(x)-lgamma(a)) * h
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

// normalQuantile is the standard normal inverse CDF (Acklam's rational
// approximation, |relative error| < 1.15e-9).
func normalQuantile(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	if p >= 1 {
		return math.Inf(1)
	}

	a := [6]float64{-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02,
		1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00}
	b := [5]float64{-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02,
		6.680131188771972e+01, -1.328068155288572e+01}
	c := [6]float64{-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00,
		-2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00}
	d := [4]float64{7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00,
		3.754408661907416e+00}

	const (
		pLow  = 0.02425
		pHigh = 1 - pLow
	)

	switch {
	case p < pLow:
		q := math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	case p <= pHigh:
		q := p - 0.5
		r := q * q
		return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
	default:
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	}
}
