package qp

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

const machEps = 2.220446049250313e-16

// Each constraint row i gives two inequality slots written as n'x >= b:
// slot 2i is the lower side (n = C_i, b = lb_i), slot 2i+1 the upper side
// (n = -C_i, b = -ub_i).
const (
	slotFree = iota
	slotActive
	slotExcluded
	slotAbsent
)

// workspace holds every buffer a solve touches. It is sized once per
// problem shape and reused across solves.
type workspace struct {
	n, m int

	sym  *mat.SymDense
	chol mat.Cholesky
	l    mat.TriDense
	linv mat.TriDense

	j, r       []float64 // n x n, row-major
	jOld, rOld []float64

	x, xOld []float64
	d, z    []float64
	step    []float64 // R^{-1} d
	np      []float64
	s       []float64 // slack per slot
	u, uOld []float64 // duals, n+1
	act     []int     // active slot ids, n+1
	actOld  []int
	state   []int8
	iq      int
	iqOld   int
}

func newWorkspace(n, m int) *workspace {
	return &workspace{
		n:      n,
		m:      m,
		sym:    mat.NewSymDense(n, nil),
		j:      make([]float64, n*n),
		r:      make([]float64, n*n),
		jOld:   make([]float64, n*n),
		rOld:   make([]float64, n*n),
		x:      make([]float64, n),
		xOld:   make([]float64, n),
		d:      make([]float64, n),
		z:      make([]float64, n),
		step:   make([]float64, n+1),
		np:     make([]float64, n),
		s:      make([]float64, 2*m),
		u:      make([]float64, n+1),
		uOld:   make([]float64, n+1),
		act:    make([]int, n+1),
		actOld: make([]int, n+1),
		state:  make([]int8, 2*m),
	}
}

func (w *workspace) fits(p *Problem) bool {
	return w != nil && w.n == p.N && w.m == p.M
}

type budget struct {
	maxIter int
	limit   time.Duration
	start   time.Time
	now     func() time.Time
}

func (b budget) check(iter int) Status {
	if iter > b.maxIter {
		return MaxIterations
	}
	if b.limit > 0 && b.now().Sub(b.start) > b.limit {
		return TimeBudgetExceeded
	}
	return Optimal
}

// solve runs the dual active-set iteration. prefer marks slots that should be
// picked first when several constraints are violated; it may be nil.
func (w *workspace) solve(p *Problem, prefer []bool, opts Options, b budget) (Status, int) {
	if st := w.setup(p, opts); st != Optimal {
		return st, 0
	}
	if st := w.factorize(p); st != Optimal {
		return st, 0
	}
	n := w.n

	// Unconstrained minimum x = -J J' c.
	for i := 0; i < n; i++ {
		var sum float64
		for k := 0; k < n; k++ {
			sum += w.j[k*n+i] * p.Cost[k]
		}
		w.d[i] = sum
	}
	for i := 0; i < n; i++ {
		var sum float64
		for k := 0; k < n; k++ {
			sum += w.j[i*n+k] * w.d[k]
		}
		w.x[i] = -sum
	}

	w.iq = 0
	rNorm := 1.0
	iter := 0

	for {
		w.slacks(p)
		for k, st := range w.state {
			if st == slotExcluded {
				w.state[k] = slotFree
			}
		}
		w.snapshot()

		for {
			ip := w.pick(p, prefer, opts.Tolerance)
			if ip < 0 {
				return Optimal, iter
			}
			w.normal(p, ip, w.np)
			w.act[w.iq] = ip
			w.u[w.iq] = 0

			st, added := w.chase(p, ip, &rNorm, &iter, b)
			if st != Optimal {
				return st, iter
			}
			if added {
				w.state[ip] = slotActive
				break
			}
			// Linearly dependent within round-off: roll back to the start of
			// this pass and leave ip out until the next one.
			w.restore()
			w.state[ip] = slotExcluded
		}
	}
}

// chase steps towards satisfying slot ip until it joins the active set or
// the problem proves infeasible.
func (w *workspace) chase(p *Problem, ip int, rNorm *float64, iter *int, b budget) (Status, bool) {
	n := w.n
	for {
		*iter++
		if st := b.check(*iter); st != Optimal {
			return st, false
		}
		iq := w.iq

		// d = J' np
		for i := 0; i < n; i++ {
			var sum float64
			for k := 0; k < n; k++ {
				sum += w.j[k*n+i] * w.np[k]
			}
			w.d[i] = sum
		}
		// z = J2 d2, the primal direction in the null space of the active normals.
		for i := 0; i < n; i++ {
			var sum float64
			for k := iq; k < n; k++ {
				sum += w.j[i*n+k] * w.d[k]
			}
			w.z[i] = sum
		}
		// step = R^{-1} d1, the change in the active duals.
		for i := iq - 1; i >= 0; i-- {
			sum := w.d[i]
			for k := i + 1; k < iq; k++ {
				sum -= w.r[i*n+k] * w.step[k]
			}
			w.step[i] = sum / w.r[i*n+i]
		}

		t1, drop := math.Inf(1), -1
		for k := 0; k < iq; k++ {
			if w.step[k] > 0 {
				if t := w.u[k] / w.step[k]; t < t1 {
					t1, drop = t, k
				}
			}
		}
		t2 := math.Inf(1)
		if dot(w.z, w.z) > machEps {
			if znp := dot(w.z, w.np); znp > 0 {
				t2 = math.Max(-w.s[ip]/znp, 0)
			}
		}

		t := math.Min(t1, t2)
		if math.IsInf(t, 1) {
			return Infeasible, false
		}
		for k := 0; k < iq; k++ {
			w.u[k] -= t * w.step[k]
		}
		w.u[iq] += t

		if math.IsInf(t2, 1) {
			// Dual step only.
			w.state[w.act[drop]] = slotFree
			w.drop(drop)
			continue
		}

		for i := 0; i < n; i++ {
			w.x[i] += t * w.z[i]
		}
		if t2 <= t1 {
			return Optimal, w.add(rNorm)
		}
		w.state[w.act[drop]] = slotFree
		w.drop(drop)
		w.s[ip] = w.slack(p, ip)
	}
}

// add appends the candidate held in d to R and rotates J so that the new
// active normal lives in column iq. It reports false when the candidate is
// numerically dependent on the active set.
func (w *workspace) add(rNorm *float64) bool {
	n, iq := w.n, w.iq
	for j := n - 1; j >= iq+1; j-- {
		cc, ss := w.d[j-1], w.d[j]
		h := math.Hypot(cc, ss)
		if h == 0 {
			continue
		}
		cc, ss = cc/h, ss/h
		w.d[j-1], w.d[j] = h, 0
		for k := 0; k < n; k++ {
			t1, t2 := w.j[k*n+j-1], w.j[k*n+j]
			w.j[k*n+j-1] = cc*t1 + ss*t2
			w.j[k*n+j] = ss*t1 - cc*t2
		}
	}
	w.iq++
	iq = w.iq
	for i := 0; i < iq; i++ {
		w.r[i*n+iq-1] = w.d[i]
	}
	if math.Abs(w.d[iq-1]) <= machEps*(*rNorm) {
		return false
	}
	*rNorm = math.Max(*rNorm, math.Abs(w.d[iq-1]))
	return true
}

// drop removes the active constraint at position q. The pending candidate at
// position iq moves down with the rest.
func (w *workspace) drop(q int) {
	n, iq := w.n, w.iq
	for i := q; i < iq; i++ {
		w.act[i] = w.act[i+1]
		w.u[i] = w.u[i+1]
		if i < iq-1 {
			for k := 0; k < n; k++ {
				w.r[k*n+i] = w.r[k*n+i+1]
			}
		}
	}
	w.act[iq] = -1
	w.u[iq] = 0
	for k := 0; k < n; k++ {
		w.r[k*n+iq-1] = 0
	}
	w.iq--
	iq = w.iq

	// Restore R to upper triangular form.
	for j := q; j < iq; j++ {
		cc, ss := w.r[j*n+j], w.r[(j+1)*n+j]
		h := math.Hypot(cc, ss)
		if h == 0 {
			continue
		}
		cc, ss = cc/h, ss/h
		w.r[j*n+j], w.r[(j+1)*n+j] = h, 0
		for k := j + 1; k < iq; k++ {
			t1, t2 := w.r[j*n+k], w.r[(j+1)*n+k]
			w.r[j*n+k] = cc*t1 + ss*t2
			w.r[(j+1)*n+k] = ss*t1 - cc*t2
		}
		for k := 0; k < n; k++ {
			t1, t2 := w.j[k*n+j], w.j[k*n+j+1]
			w.j[k*n+j] = cc*t1 + ss*t2
			w.j[k*n+j+1] = ss*t1 - cc*t2
		}
	}
}

// setup marks which slots exist and rejects crossed bounds.
func (w *workspace) setup(p *Problem, opts Options) Status {
	for i := 0; i < p.M; i++ {
		lo, hi := p.Lower[i], p.Upper[i]
		if lo > hi+opts.Tolerance*(1+math.Abs(hi)) {
			return Infeasible
		}
		w.state[2*i] = slotFree
		if lo <= -opts.InfBound {
			w.state[2*i] = slotAbsent
		}
		w.state[2*i+1] = slotFree
		if hi >= opts.InfBound {
			w.state[2*i+1] = slotAbsent
		}
	}
	for i := range w.act {
		w.act[i] = -1
		w.u[i] = 0
	}
	return Optimal
}

// factorize computes J = L^{-T} from Q = L L'.
func (w *workspace) factorize(p *Problem) Status {
	n := w.n
	for i := 0; i < n; i++ {
		for k := i; k < n; k++ {
			w.sym.SetSym(i, k, 0.5*(p.Q[i*n+k]+p.Q[k*n+i]))
		}
	}
	if ok := w.chol.Factorize(w.sym); !ok {
		return NotPositiveDefinite
	}
	w.chol.LTo(&w.l)
	if err := w.linv.InverseTri(&w.l); err != nil {
		return NotPositiveDefinite
	}
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			w.j[i*n+k] = w.linv.At(k, i)
			w.r[i*n+k] = 0
		}
	}
	return Optimal
}

func (w *workspace) normal(p *Problem, slot int, out []float64) {
	row := p.C[(slot/2)*p.N : (slot/2+1)*p.N]
	if slot%2 == 0 {
		copy(out, row)
		return
	}
	for i, v := range row {
		out[i] = -v
	}
}

func (w *workspace) bound(p *Problem, slot int) float64 {
	if slot%2 == 0 {
		return p.Lower[slot/2]
	}
	return -p.Upper[slot/2]
}

func (w *workspace) slack(p *Problem, slot int) float64 {
	row := p.C[(slot/2)*p.N : (slot/2+1)*p.N]
	v := dot(row, w.x)
	if slot%2 == 0 {
		return v - p.Lower[slot/2]
	}
	return p.Upper[slot/2] - v
}

func (w *workspace) slacks(p *Problem) {
	for k, st := range w.state {
		if st == slotAbsent {
			w.s[k] = 0
			continue
		}
		w.s[k] = w.slack(p, k)
	}
}

// pick returns the most violated free slot, looking at preferred slots
// first, or -1 when every slot is satisfied within tol.
func (w *workspace) pick(p *Problem, prefer []bool, tol float64) int {
	best, bestPref := -1, -1
	worst, worstPref := 0.0, 0.0
	for k, st := range w.state {
		if st != slotFree {
			continue
		}
		v := w.s[k]
		if v >= -tol*(1+math.Abs(w.bound(p, k))) {
			continue
		}
		if v < worst {
			worst, best = v, k
		}
		if prefer != nil && prefer[k] && v < worstPref {
			worstPref, bestPref = v, k
		}
	}
	if bestPref >= 0 {
		return bestPref
	}
	return best
}

func (w *workspace) snapshot() {
	copy(w.xOld, w.x)
	copy(w.uOld, w.u)
	copy(w.actOld, w.act)
	copy(w.jOld, w.j)
	copy(w.rOld, w.r)
	w.iqOld = w.iq
}

func (w *workspace) restore() {
	for k := 0; k < w.iq; k++ {
		if w.state[w.act[k]] == slotActive {
			w.state[w.act[k]] = slotFree
		}
	}
	copy(w.x, w.xOld)
	copy(w.u, w.uOld)
	copy(w.act, w.actOld)
	copy(w.j, w.jOld)
	copy(w.r, w.rOld)
	w.iq = w.iqOld
	for k := 0; k < w.iq; k++ {
		w.state[w.act[k]] = slotActive
	}
}

func (w *workspace) objective(p *Problem) float64 {
	n := w.n
	var f float64
	for i := 0; i < n; i++ {
		var qx float64
		for k := 0; k < n; k++ {
			qx += p.Q[i*n+k] * w.x[k]
		}
		f += w.x[i] * (0.5*qx + p.Cost[i])
	}
	return f
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
