package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/tomasulo16/timing/config"
)

var _ = Describe("Config", func() {
	Describe("DefaultConfig", func() {
		It("matches the fixed functional-unit table", func() {
			cfg := config.DefaultConfig()
			Expect(cfg.LoadLatency).To(Equal(uint64(6)))
			Expect(cfg.StoreLatency).To(Equal(uint64(6)))
			Expect(cfg.BeqLatency).To(Equal(uint64(1)))
			Expect(cfg.CallRetLatency).To(Equal(uint64(1)))
			Expect(cfg.AddLatency).To(Equal(uint64(2)))
			Expect(cfg.NandLatency).To(Equal(uint64(1)))
			Expect(cfg.MulLatency).To(Equal(uint64(8)))

			Expect(cfg.LoadStations).To(Equal(2))
			Expect(cfg.StoreStations).To(Equal(1))
			Expect(cfg.BeqStations).To(Equal(1))
			Expect(cfg.CallRetStations).To(Equal(1))
			Expect(cfg.AddStations).To(Equal(4))
			Expect(cfg.NandStations).To(Equal(2))
			Expect(cfg.MulStations).To(Equal(1))

			Expect(cfg.ROBSize).To(Equal(32))
			Expect(cfg.Validate()).To(Succeed())
		})
	})

	Describe("SaveConfig / LoadConfig round trip", func() {
		It("preserves every field", func() {
			dir := GinkgoT().TempDir()
			path := filepath.Join(dir, "cfg.json")

			cfg := config.DefaultConfig()
			cfg.MulLatency = 16

			Expect(cfg.SaveConfig(path)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("fails on a missing file", func() {
			_, err := config.LoadConfig(filepath.Join(os.TempDir(), "does-not-exist.json"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Validate", func() {
		It("rejects a zero latency", func() {
			cfg := config.DefaultConfig()
			cfg.AddLatency = 0
			Expect(cfg.Validate()).To(HaveOccurred())
		})

		It("rejects a ROB smaller than the total station count", func() {
			cfg := config.DefaultConfig()
			cfg.ROBSize = 1
			Expect(cfg.Validate()).To(HaveOccurred())
		})
	})

	Describe("Clone", func() {
		It("returns an independent copy", func() {
			cfg := config.DefaultConfig()
			clone := cfg.Clone()
			clone.MulLatency = 999
			Expect(cfg.MulLatency).To(Equal(uint64(8)))
		})
	})
})
