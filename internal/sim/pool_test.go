package sim_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/adsorb/internal/dynamo"
	"github.com/san-kum/adsorb/internal/sim"
)

var _ = Describe("StatePool", func() {
	It("hands out zeroed states of the requested length", func() {
		pool := sim.NewStatePool()
		s := pool.Get(3)
		Expect(s).To(HaveLen(3))
		s[1] = 7
		pool.Put(s)

		Expect(pool.Get(3)).To(Equal(dynamo.State{0, 0, 0}))
		Expect(pool.Get(5)).To(HaveLen(5))
	})

	It("ignores empty states", func() {
		pool := sim.NewStatePool()
		pool.Put(nil)
		Expect(pool.Get(0)).To(BeEmpty())
	})
})
