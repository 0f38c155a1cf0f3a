package sim_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/psmcsim/internal/config"
	"github.com/san-kum/psmcsim/internal/dynamo"
	"github.com/san-kum/psmcsim/internal/integrators"
	"github.com/san-kum/psmcsim/internal/physics"
	"github.com/san-kum/psmcsim/internal/sim"
	"github.com/san-kum/psmcsim/internal/states"
)

var _ = Describe("Simulator", func() {
	var (
		params physics.Params
		ctx    context.Context
	)

	BeforeEach(func() {
		var err error
		params, err = config.GetPreset("2010")
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()
	})

	Context("with one constant state", func() {
		ss := []states.State{{Start: 0, Stop: 2e6, Power: 100, Pitch: 60, SimPos: 75766}}

		It("keeps PIN between its initial value and the fixed point", func() {
			result, err := sim.New(integrators.NewAnalytic(), params, dynamo.DefaultConfig()).Run(ctx, ss, 35, 45)
			Expect(err).NotTo(HaveOccurred())

			pin := result.Trajectory.Channel(dynamo.NodePIN, true)
			for _, v := range pin {
				Expect(v).To(BeNumerically("<=", 35+1e-9))
				Expect(v).To(BeNumerically(">=", 27.259432-1e-6))
			}
		})

		It("settles at the fixed point", func() {
			result, err := sim.New(integrators.NewAnalytic(), params, dynamo.DefaultConfig()).Run(ctx, ss, 35, 45)
			Expect(err).NotTo(HaveOccurred())

			_, last := result.Trajectory.Last()
			c := last.Celsius()
			Expect(c[0]).To(BeNumerically("~", 27.259432, 1e-5))
			Expect(c[1]).To(BeNumerically("~", 39.092351, 1e-5))
		})

		It("stays put when started at the fixed point", func() {
			seg, err := physics.NewSegment(params, 100, 60, 75766)
			Expect(err).NotTo(HaveOccurred())
			fixed, err := seg.SteadyState()
			Expect(err).NotTo(HaveOccurred())

			c := fixed.Celsius()
			pin, dea, err := sim.Predict(ctx, ss, c[0], c[1], []float64{1e4, 1e5, 1e6}, params, 0)
			Expect(err).NotTo(HaveOccurred())
			for i := range pin {
				Expect(pin[i]).To(BeNumerically("~", c[0], 1e-8))
				Expect(dea[i]).To(BeNumerically("~", c[1], 1e-8))
			}
		})
	})

	Context("when a state is split in two", func() {
		It("gives the same prediction as the unsplit state", func() {
			whole := []states.State{{Start: 0, Stop: 20000, Power: 80, Pitch: 120, SimPos: -99616}}
			split := []states.State{
				{Start: 0, Stop: 7000, Power: 80, Pitch: 120, SimPos: -99616},
				{Start: 7000, Stop: 20000, Power: 80, Pitch: 120, SimPos: -99616},
			}
			times := []float64{3000, 7000, 12000, 20000}

			pinA, deaA, err := sim.Predict(ctx, whole, 20, 30, times, params, 0)
			Expect(err).NotTo(HaveOccurred())
			pinB, deaB, err := sim.Predict(ctx, split, 20, 30, times, params, 0)
			Expect(err).NotTo(HaveOccurred())

			for i := range times {
				Expect(pinB[i]).To(BeNumerically("~", pinA[i], 1e-2))
				Expect(deaB[i]).To(BeNumerically("~", deaA[i], 1e-2))
			}
			Expect(pinB[3]).To(BeNumerically("~", pinA[3], 1e-9))
			Expect(deaB[3]).To(BeNumerically("~", deaA[3], 1e-9))
		})
	})

	Context("with every solver", func() {
		ss := []states.State{
			{Start: 0, Stop: 10000, Power: 60, Pitch: 100, SimPos: 75766},
			{Start: 10000, Stop: 20000, Power: 60, Pitch: 80, SimPos: -50000},
		}

		DescribeTable("agrees with the analytic solution",
			func(solver sim.Solver, tol float64) {
				times := []float64{5000, 10000, 15000, 20000}
				wantPin, wantDea, err := sim.Predict(ctx, ss, 35, 45, times, params, 0)
				Expect(err).NotTo(HaveOccurred())

				pin, dea, err := sim.New(solver, params, dynamo.DefaultConfig()).Predict(ctx, ss, 35, 45, times)
				Expect(err).NotTo(HaveOccurred())
				for i := range times {
					Expect(pin[i]).To(BeNumerically("~", wantPin[i], tol))
					Expect(dea[i]).To(BeNumerically("~", wantDea[i], tol))
				}
			},
			Entry("rk4", integrators.NewRK4(), 1e-4),
			Entry("euler", integrators.NewEuler(), 0.05),
		)
	})
})
