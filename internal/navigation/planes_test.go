package navigation_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/trackprop/internal/navigation"
	"github.com/san-kum/trackprop/internal/stepper"
	"github.com/san-kum/trackprop/internal/track"
)

func telescope(xs ...float64) []navigation.Surface {
	surfaces := make([]navigation.Surface, len(xs))
	for i, x := range xs {
		surfaces[i] = navigation.Surface{
			ID:     string(rune('a' + i)),
			Center: track.Vector3{x, 0, 0},
			Normal: track.Vector3{1, 0, 0},
		}
	}
	return surfaces
}

func newState(dir track.Vector3) *stepper.State {
	st, err := stepper.NewStraightLine().NewState(
		track.NewParameters(track.Vector3{}, dir, 1, 1),
		stepper.Options{Direction: stepper.Forward, InitialStepSize: 1000, Tolerance: 1e-4},
	)
	Expect(err).NotTo(HaveOccurred())
	return st
}

var _ = Describe("Surface", func() {
	It("measures the signed distance along a direction", func() {
		s := navigation.Surface{ID: "p", Center: track.Vector3{10, 0, 0}, Normal: track.Vector3{2, 0, 0}}

		d, ok := s.Distance(track.Vector3{}, track.Vector3{1, 0, 0})
		Expect(ok).To(BeTrue())
		Expect(d).To(BeNumerically("~", 10, 1e-12))

		d, ok = s.Distance(track.Vector3{}, track.Vector3{-1, 0, 0})
		Expect(ok).To(BeTrue())
		Expect(d).To(BeNumerically("~", -10, 1e-12))

		d, ok = s.Distance(track.Vector3{}, track.Vector3{1, 1, 0}.Unit())
		Expect(ok).To(BeTrue())
		Expect(d).To(BeNumerically("~", 10*math.Sqrt2, 1e-9))
	})

	It("reports parallel directions", func() {
		s := navigation.Surface{ID: "p", Center: track.Vector3{10, 0, 0}, Normal: track.Vector3{1, 0, 0}}
		_, ok := s.Distance(track.Vector3{}, track.Vector3{0, 1, 0})
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Planes", func() {
	var (
		nav *navigation.State
		st  *stepper.State
	)

	BeforeEach(func() {
		nav = &navigation.State{}
		st = newState(track.Vector3{1, 0, 0})
	})

	Context("construction", func() {
		It("defaults the target to the last surface", func() {
			p, err := navigation.NewPlanes(telescope(10, 20), "", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Init(nav, st)).To(Succeed())
			Expect(nav.Target).To(Equal("b"))
		})

		It("rejects empty, duplicate and unknown surfaces", func() {
			_, err := navigation.NewPlanes(nil, "", 0)
			Expect(err).To(MatchError(navigation.ErrInconsistent))

			dup := append(telescope(10), telescope(20)...)
			_, err = navigation.NewPlanes(dup, "", 0)
			Expect(err).To(MatchError(navigation.ErrInconsistent))

			_, err = navigation.NewPlanes(telescope(10), "zz", 0)
			Expect(err).To(MatchError(navigation.ErrInconsistent))
		})
	})

	Context("stepping through a telescope", func() {
		It("constrains each step to the next plane and reaches the target", func() {
			p, err := navigation.NewPlanes(telescope(10, 25, 40), "", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Init(nav, st)).To(Succeed())
			Expect(st.StepSize.Get(stepper.ConstraintNavigator)).To(BeNumerically("~", 10, 1e-12))

			s := stepper.NewStraightLine()
			for i := 0; i < 3; i++ {
				_, err := s.Step(st)
				Expect(err).NotTo(HaveOccurred())
				Expect(p.Update(nav, st)).To(Succeed())
			}

			Expect(nav.Passed).To(Equal([]string{"a", "b", "c"}))
			Expect(p.TargetReached(nav)).To(BeTrue())
			Expect(nav.Current).To(Equal("c"))
			Expect(st.PathLength).To(BeNumerically("~", 40, 1e-9))
			Expect(math.IsInf(st.StepSize.Get(stepper.ConstraintNavigator), 1)).To(BeTrue())
		})

		It("stops early at a named target", func() {
			p, _ := navigation.NewPlanes(telescope(10, 25, 40), "b", 0)
			Expect(p.Init(nav, st)).To(Succeed())

			s := stepper.NewStraightLine()
			for !p.TargetReached(nav) {
				_, err := s.Step(st)
				Expect(err).NotTo(HaveOccurred())
				Expect(p.Update(nav, st)).To(Succeed())
			}
			Expect(nav.Summary().SurfacesPassed).To(Equal([]string{"a", "b"}))
		})
	})

	Context("failures", func() {
		It("fails when the next surface lies behind", func() {
			p, _ := navigation.NewPlanes(telescope(-10), "", 0)
			Expect(p.Init(nav, st)).To(MatchError(navigation.ErrNoTarget))
		})

		It("fails when moving parallel to the next surface", func() {
			p, _ := navigation.NewPlanes(telescope(10), "", 0)
			parallel := newState(track.Vector3{0, 1, 0})
			Expect(p.Init(nav, parallel)).To(MatchError(navigation.ErrNoTarget))
		})

		It("detects state built for other geometry", func() {
			p, _ := navigation.NewPlanes(telescope(10, 20), "", 0)
			Expect(p.Init(nav, st)).To(Succeed())
			nav.Surfaces = nav.Surfaces[:1]
			Expect(p.Update(nav, st)).To(MatchError(navigation.ErrInconsistent))
		})
	})
})

var _ = Describe("Void", func() {
	It("never reaches a target", func() {
		var v navigation.Void
		nav := &navigation.State{Current: "stale"}
		st := newState(track.Vector3{1, 0, 0})

		Expect(v.Init(nav, st)).To(Succeed())
		Expect(v.Update(nav, st)).To(Succeed())
		Expect(nav.Current).To(BeEmpty())
		Expect(v.TargetReached(nav)).To(BeFalse())
	})
})
