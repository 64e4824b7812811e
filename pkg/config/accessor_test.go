package config_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gur-shatz/go-cgi/pkg/config"
)

type serverSection struct {
	Addr         string            `yaml:"addr" validate:"required"`
	Timeout      time.Duration     `yaml:"timeout"`
	MaxBody      int64             `yaml:"max_body_bytes" validate:"gte=0"`
	Interpreters map[string]string `yaml:"interpreters"`
}

var _ = Describe("O", func() {
	cfg := config.O{
		"server": map[string]any{
			"addr":           ":8080",
			"timeout":        "5s",
			"max_body_bytes": "1024",
			"interpreters":   map[string]any{".py": "python3"},
		},
		"bad": map[string]any{
			"max_body_bytes": -1,
		},
	}

	Describe("Get", func() {
		It("walks dot paths", func() {
			v, ok := cfg.Get("server.addr")
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(":8080"))
		})

		It("reports missing paths", func() {
			_, ok := cfg.Get("server.nope")
			Expect(ok).To(BeFalse())
			_, ok = cfg.Get("server.addr.deeper")
			Expect(ok).To(BeFalse())
		})

	})

	Describe("GetInto", func() {
		It("decodes weakly typed values and durations", func() {
			var s serverSection
			Expect(cfg.GetInto("server", &s, config.WithValidation())).To(Succeed())
			Expect(s.Addr).To(Equal(":8080"))
			Expect(s.Timeout).To(Equal(5 * time.Second))
			Expect(s.MaxBody).To(Equal(int64(1024)))
			Expect(s.Interpreters).To(HaveKeyWithValue(".py", "python3"))
		})

		It("fails on a missing key", func() {
			var s serverSection
			Expect(cfg.GetInto("nope", &s)).To(MatchError(ContainSubstring("key not found")))
		})

		It("validates when asked", func() {
			var s serverSection
			Expect(cfg.GetInto("bad", &s)).To(Succeed())
			Expect(cfg.GetInto("bad", &s, config.WithValidation())).To(MatchError(ContainSubstring("validation failed")))
		})
	})
})
