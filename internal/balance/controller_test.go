package balance_test

import (
	"errors"
	"math"

	"github.com/golang/geo/r3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/grfbalance/internal/balance"
	"github.com/san-kum/grfbalance/internal/gait"
	"github.com/san-kum/grfbalance/internal/qp"
	"github.com/san-kum/grfbalance/internal/rigid"
)

const eps = 1e-6

func testConfig() balance.Config {
	cfg := balance.DefaultConfig()
	cfg.Physical.Mass = 10
	cfg.Options.Solver.TimeBudget = 0
	return cfg
}

func standingFeet() []r3.Vector {
	return []r3.Vector{
		{X: 0.2, Y: 0.15, Z: -0.3},
		{X: 0.2, Y: -0.15, Z: -0.3},
		{X: -0.2, Y: 0.15, Z: -0.3},
		{X: -0.2, Y: -0.15, Z: -0.3},
	}
}

func standing() balance.BodyState {
	return balance.BodyState{Position: r3.Vector{Z: 0.3}, Rotation: rigid.Identity()}
}

func contactsWith(legs []string, swing ...string) gait.Map {
	m := gait.AllStance(legs)
	for _, leg := range swing {
		m[leg] = gait.Contact{State: gait.Swing}
	}
	return m
}

func legForce(v []float64, i int) r3.Vector {
	return r3.Vector{X: v[3*i], Y: v[3*i+1], Z: v[3*i+2]}
}

type scenario struct {
	cur, des balance.BodyState
}

func perturbed() []scenario {
	des := standing()
	tilted := standing()
	tilted.Rotation = rigid.RPY(0.1, -0.08, 0.3)
	tilted.AngularVelocity = r3.Vector{X: 0.5, Y: -0.2, Z: 0.1}
	low := standing()
	low.Position = r3.Vector{X: 0.03, Y: -0.02, Z: 0.25}
	low.Velocity = r3.Vector{X: -0.1, Z: -0.3}
	far := standing()
	far.Position = r3.Vector{X: 0.5, Y: 0.5, Z: 0.1}
	far.Rotation = rigid.RPY(0.4, 0.4, -1)
	return []scenario{
		{cur: standing(), des: des},
		{cur: tilted, des: des},
		{cur: low, des: des},
		{cur: far, des: des},
	}
}

var _ = Describe("Controller", func() {
	var (
		cfg  balance.Config
		ctrl *balance.Controller
		legs []string
	)

	BeforeEach(func() {
		cfg = testConfig()
		legs = cfg.Legs
		var err error
		ctrl, err = balance.New(cfg, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("static equilibrium", func() {
		It("carries the body weight evenly across four stance legs", func() {
			sol, err := ctrl.Solve(standingFeet(), standing(), standing(), gait.AllStance(legs))
			Expect(err).NotTo(HaveOccurred())

			var total float64
			for i := range legs {
				f := legForce(sol.World, i)
				total += f.Z
				Expect(f.Z).To(BeNumerically("~", 24.525, 1e-2))
				Expect(math.Abs(f.X)).To(BeNumerically("<", 1e-6))
				Expect(math.Abs(f.Y)).To(BeNumerically("<", 1e-6))
			}
			Expect(total).To(BeNumerically("~", 10*9.81, 1e-2))
		})

		It("returns the command as the negated body-frame force", func() {
			body := ctrl.Control(standingFeet(), standing(), standing(), gait.AllStance(legs))
			var total float64
			for i := range legs {
				total += legForce(body, i).Z
			}
			Expect(total).To(BeNumerically("~", -10*9.81, 1e-2))
		})

		It("rotates the command into a tilted body frame", func() {
			cur := standing()
			cur.Rotation = rigid.RPY(0, 0, math.Pi/2)
			des := cur

			sol, err := ctrl.Solve(standingFeet(), cur, des, gait.AllStance(legs))
			Expect(err).NotTo(HaveOccurred())
			for i := range legs {
				world := legForce(sol.World, i)
				want := rigid.ApplyT(cur.Rotation, world).Mul(-1)
				Expect(legForce(sol.Body, i).Sub(want).Norm()).To(BeNumerically("<", 1e-12))
			}
		})
	})

	Describe("swing legs", func() {
		It("never carry force", func() {
			for _, sc := range perturbed() {
				for _, swing := range [][]string{{"FL", "RR"}, {"FR"}, {"RL", "RR"}} {
					c, err := balance.New(cfg, nil)
					Expect(err).NotTo(HaveOccurred())
					contacts := contactsWith(legs, swing...)
					sol, err := c.Solve(standingFeet(), sc.cur, sc.des, contacts)
					Expect(err).NotTo(HaveOccurred())

					for i, leg := range legs {
						if contacts[leg].State == gait.Swing {
							Expect(legForce(sol.World, i).Norm()).To(BeZero())
							Expect(legForce(sol.Body, i).Norm()).To(BeZero())
						}
					}
				}
			}
		})

		It("returns an all-zero command when every leg swings", func() {
			body := ctrl.Control(standingFeet(), standing(), standing(), contactsWith(legs, legs...))
			Expect(body).To(HaveLen(balance.NumVariables))
			Expect(body).To(HaveEach(0.0))
		})
	})

	Describe("friction cone", func() {
		It("holds on every stance leg", func() {
			mu := cfg.Physical.Mu
			for _, sc := range perturbed() {
				for _, swing := range [][]string{nil, {"FL", "RR"}, {"FR"}} {
					contacts := contactsWith(legs, swing...)
					sol, err := ctrl.Solve(standingFeet(), sc.cur, sc.des, contacts)
					Expect(err).NotTo(HaveOccurred())

					for i, leg := range legs {
						if contacts[leg].State != gait.Stance {
							continue
						}
						f := legForce(sol.World, i)
						Expect(math.Abs(f.X)).To(BeNumerically("<=", mu*f.Z+eps))
						Expect(math.Abs(f.Y)).To(BeNumerically("<=", mu*f.Z+eps))
						Expect(f.Z).To(BeNumerically(">=", cfg.Physical.FzMin-eps))
						Expect(f.Z).To(BeNumerically("<=", cfg.Physical.FzMax+eps))
					}
				}
			}
		})
	})

	Describe("warm start", func() {
		It("reaches the cold-start optimum", func() {
			for _, sc := range perturbed() {
				contacts := contactsWith(legs, "FR")

				fresh, err := balance.New(cfg, nil)
				Expect(err).NotTo(HaveOccurred())
				cold, err := fresh.Solve(standingFeet(), sc.cur, sc.des, contacts)
				Expect(err).NotTo(HaveOccurred())
				Expect(cold.QP.Phase).To(Equal(qp.Cold))

				again, err := fresh.Solve(standingFeet(), sc.cur, sc.des, contacts)
				Expect(err).NotTo(HaveOccurred())
				Expect(again.QP.Phase).To(Equal(qp.Warm))

				fresh.Reset()
				reset, err := fresh.Solve(standingFeet(), sc.cur, sc.des, contacts)
				Expect(err).NotTo(HaveOccurred())
				Expect(reset.QP.Phase).To(Equal(qp.Cold))

				for i := range cold.World {
					Expect(again.World[i]).To(BeNumerically("~", cold.World[i], 1e-6))
					Expect(reset.World[i]).To(BeNumerically("~", cold.World[i], 1e-6))
				}
			}
		})
	})

	Describe("failures", func() {
		It("returns zero when the normal force limits cross", func() {
			core, logs := observer.New(zapcore.ErrorLevel)
			bad := testConfig()
			bad.Physical.FzMin = 200
			bad.Physical.FzMax = 100
			c, err := balance.New(bad, zap.New(core))
			Expect(err).NotTo(HaveOccurred())

			body := c.Control(standingFeet(), standing(), standing(), gait.AllStance(legs))
			Expect(body).To(HaveLen(balance.NumVariables))
			Expect(body).To(HaveEach(0.0))

			_, err = c.Solve(standingFeet(), standing(), standing(), gait.AllStance(legs))
			Expect(errors.Is(err, qp.ErrInfeasible)).To(BeTrue())
			Expect(c.Stats().Failures).To(Equal(2))
			Expect(logs.FilterMessage("force distribution failed").Len()).To(Equal(2))
		})

		It("does not return a stale command after a failure", func() {
			good := ctrl.Control(standingFeet(), standing(), standing(), gait.AllStance(legs))
			Expect(good).NotTo(HaveEach(0.0))

			body := ctrl.Control(standingFeet()[:3], standing(), standing(), gait.AllStance(legs))
			Expect(body).To(HaveEach(0.0))

			again := ctrl.Control(standingFeet(), standing(), standing(), gait.AllStance(legs))
			for i := range good {
				Expect(again[i]).To(BeNumerically("~", good[i], 1e-6))
			}
		})

		It("rejects a contact map with a missing leg", func() {
			contacts := gait.AllStance(legs)
			delete(contacts, "RL")
			sol, err := ctrl.Solve(standingFeet(), standing(), standing(), contacts)
			Expect(errors.Is(err, gait.ErrMissingLeg)).To(BeTrue())
			Expect(sol.Body).To(HaveEach(0.0))
		})

		It("rejects malformed rotations", func() {
			cur := standing()
			cur.Rotation = mat.NewDense(3, 3, []float64{2, 0, 0, 0, 2, 0, 0, 0, 2})
			_, err := ctrl.Solve(standingFeet(), cur, standing(), gait.AllStance(legs))
			Expect(errors.Is(err, balance.ErrRotation)).To(BeTrue())

			cur.Rotation = nil
			_, err = ctrl.Solve(standingFeet(), cur, standing(), gait.AllStance(legs))
			Expect(errors.Is(err, balance.ErrRotation)).To(BeTrue())
		})

		It("rejects an invalid configuration", func() {
			bad := testConfig()
			bad.Legs = []string{"FL", "FL", "RL"}
			bad.Physical.Mass = -1
			_, err := balance.New(bad, nil)
			Expect(errors.Is(err, balance.ErrConfig)).To(BeTrue())
		})
	})

	Describe("smoothing", func() {
		It("pulls the solution towards the previous cycle", func() {
			smooth := testConfig()
			smooth.Weights.Smoothing = 10
			c, err := balance.New(smooth, nil)
			Expect(err).NotTo(HaveOccurred())

			first, err := c.Solve(standingFeet(), standing(), standing(), gait.AllStance(legs))
			Expect(err).NotTo(HaveOccurred())

			pushed := standing()
			pushed.Position = r3.Vector{Z: 0.25}
			plain, err := ctrl.Solve(standingFeet(), pushed, standing(), gait.AllStance(legs))
			Expect(err).NotTo(HaveOccurred())
			damped, err := c.Solve(standingFeet(), pushed, standing(), gait.AllStance(legs))
			Expect(err).NotTo(HaveOccurred())

			dist := func(a, b []float64) float64 {
				var s float64
				for i := range a {
					s += (a[i] - b[i]) * (a[i] - b[i])
				}
				return math.Sqrt(s)
			}
			Expect(dist(damped.World, first.World)).To(BeNumerically("<", dist(plain.World, first.World)))
		})
	})

	It("counts cold and warm starts", func() {
		for i := 0; i < 3; i++ {
			ctrl.Control(standingFeet(), standing(), standing(), gait.AllStance(legs))
		}
		st := ctrl.Stats()
		Expect(st.Cycles).To(Equal(3))
		Expect(st.ColdStarts).To(Equal(1))
		Expect(st.WarmStarts).To(Equal(2))
		Expect(st.LastStatus).To(Equal(qp.Optimal))
	})
})
