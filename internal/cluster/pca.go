package cluster

import (
	"errors"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Projection is a 2-D view of a standardized feature matrix.
type Projection struct {
	X, Y []float64
	// Explained holds the variance ratio of each kept component.
	Explained []float64
}

// Project reduces x to its first two principal components. A single
// feature projects onto X with Y fixed at 0.
func Project(x [][]float64) (*Projection, error) {
	n := len(x)
	if n == 0 {
		return nil, ErrNoRows
	}
	d := len(x[0])
	p := &Projection{X: make([]float64, n), Y: make([]float64, n)}
	if n < 2 || d == 0 {
		return p, nil
	}
	data := make([]float64, 0, n*d)
	for _, row := range x {
		data = append(data, row...)
	}
	m := mat.NewDense(n, d, data)

	var pc stat.PC
	if ok := pc.PrincipalComponents(m, nil); !ok {
		return nil, errors.New("principal component analysis failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	_, vc := vecs.Dims()
	k := 2
	if vc < k {
		k = vc
	}
	var proj mat.Dense
	proj.Mul(m, vecs.Slice(0, d, 0, k))

	var total float64
	for _, v := range vars {
		total += v
	}
	for c := 0; c < k; c++ {
		ratio := 0.0
		if total > 0 && c < len(vars) {
			ratio = vars[c] / total
		}
		p.Explained = append(p.Explained, ratio)
	}
	for i := 0; i < n; i++ {
		p.X[i] = proj.At(i, 0)
		if k > 1 {
			p.Y[i] = proj.At(i, 1)
		}
	}
	return p, nil
}
