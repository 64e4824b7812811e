package cli_test

import (
	"flag"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gur-shatz/go-cgi/internal/cli"
)

var _ = Describe("CLI", func() {
	Describe("Parse", func() {
		It("defaults to serving cgiserve.yaml", func() {
			cfg, err := cli.Parse([]string{})
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Command).To(Equal(cli.CommandServe))
			Expect(cfg.ConfigFile).To(Equal("cgiserve.yaml"))
			Expect(cfg.Verbose).To(BeFalse())
			Expect(cfg.Addr).To(BeEmpty())
		})

		It("parses flags", func() {
			cfg, err := cli.Parse([]string{"-c", "other.yaml", "--verbose", "--addr", ":9000"})
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.ConfigFile).To(Equal("other.yaml"))
			Expect(cfg.Verbose).To(BeTrue())
			Expect(cfg.Addr).To(Equal(":9000"))
		})

		It("collects repeated --var flags", func() {
			cfg, err := cli.Parse([]string{"--var", "PORT=9000", "--var", "DIR=a=b"})
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Vars).To(Equal(map[string]string{"PORT": "9000", "DIR": "a=b"}))
		})

		It("rejects a --var without '='", func() {
			_, err := cli.Parse([]string{"--var", "PORT"})
			Expect(err).To(MatchError(ContainSubstring("KEY=VALUE")))
		})

		It("parses init with a custom config", func() {
			cfg, err := cli.Parse([]string{"-c", "my.yml", "init"})
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Command).To(Equal(cli.CommandInit))
			Expect(cfg.ConfigFile).To(Equal("my.yml"))
		})

		It("parses list", func() {
			cfg, err := cli.Parse([]string{"list"})
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Command).To(Equal(cli.CommandList))
		})

		It("rejects unknown subcommands", func() {
			_, err := cli.Parse([]string{"deploy"})
			Expect(err).To(MatchError(ContainSubstring(`unknown subcommand "deploy"`)))
		})

		It("rejects extra arguments", func() {
			_, err := cli.Parse([]string{"list", "now"})
			Expect(err).To(MatchError(ContainSubstring("unexpected arguments")))
		})

		It("returns ErrHelp for -h", func() {
			_, err := cli.Parse([]string{"-h"})
			Expect(err).To(MatchError(flag.ErrHelp))
		})

		It("falls back to the .yml variant", func() {
			dir := GinkgoT().TempDir()
			yml := filepath.Join(dir, "cgiserve.yml")
			Expect(os.WriteFile(yml, []byte("x"), 0644)).To(Succeed())

			cfg, err := cli.Parse([]string{"-c", filepath.Join(dir, "cgiserve.yaml")})
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.ConfigFile).To(Equal(yml))
		})
	})

	Describe("ResolveYAMLPath", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		It("prefers the original extension when both exist", func() {
			yamlPath := filepath.Join(dir, "cgiserve.yaml")
			ymlPath := filepath.Join(dir, "cgiserve.yml")
			Expect(os.WriteFile(yamlPath, []byte("x"), 0644)).To(Succeed())
			Expect(os.WriteFile(ymlPath, []byte("x"), 0644)).To(Succeed())

			Expect(cli.ResolveYAMLPath(yamlPath)).To(Equal(yamlPath))
			Expect(cli.ResolveYAMLPath(ymlPath)).To(Equal(ymlPath))
		})

		It("falls back to .yaml when .yml does not exist", func() {
			yamlPath := filepath.Join(dir, "cgiserve.yaml")
			Expect(os.WriteFile(yamlPath, []byte("x"), 0644)).To(Succeed())
			Expect(cli.ResolveYAMLPath(filepath.Join(dir, "cgiserve.yml"))).To(Equal(yamlPath))
		})

		It("returns the original path when nothing exists or the extension is not yaml", func() {
			p := filepath.Join(dir, "cgiserve.yaml")
			Expect(cli.ResolveYAMLPath(p)).To(Equal(p))
			t := filepath.Join(dir, "cgiserve.toml")
			Expect(cli.ResolveYAMLPath(t)).To(Equal(t))
		})
	})

	Describe("Usage", func() {
		It("lists the subcommands", func() {
			Expect(cli.Usage()).To(ContainSubstring("cgiserve [flags] init"))
			Expect(cli.Usage()).To(ContainSubstring("cgiserve [flags] list"))
		})
	})
})
