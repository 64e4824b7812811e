package cgihost_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gur-shatz/go-cgi/internal/glob"
	"github.com/gur-shatz/go-cgi/pkg/cgihost"
)

var _ = Describe("Registry", func() {
	var (
		dir string
		reg *cgihost.Registry
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		writeScript(dir, "hello.py", "")
		writeScript(dir, "post.py", "")
		writeScript(dir, "admin/status.cgi", "")
		writeScript(dir, "_lib.py", "")
		writeScript(dir, "README", "")

		reg = cgihost.NewRegistry(dir, glob.ParsePatterns([]string{"**/*.py", "**/*.cgi", "!**/_*"}), testLogger)
		Expect(reg.Refresh()).To(Succeed())
	})

	It("indexes matching scripts", func() {
		Expect(reg.Scripts()).To(Equal([]string{"admin/status.cgi", "hello.py", "post.py"}))
	})

	It("picks up changes on refresh", func() {
		writeScript(dir, "new.py", "")
		Expect(os.Remove(filepath.Join(dir, "post.py"))).To(Succeed())
		Expect(reg.Refresh()).To(Succeed())
		Expect(reg.Scripts()).To(Equal([]string{"admin/status.cgi", "hello.py", "new.py"}))
	})

	DescribeTable("Lookup",
		func(urlPath, script, pathInfo string) {
			s, info, err := reg.Lookup(urlPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(s).To(Equal(script))
			Expect(info).To(Equal(pathInfo))
		},
		Entry("plain script", "hello.py", "hello.py", ""),
		Entry("leading slash", "/hello.py", "hello.py", ""),
		Entry("nested script", "admin/status.cgi", "admin/status.cgi", ""),
		Entry("path info", "admin/status.cgi/disk/0", "admin/status.cgi", "/disk/0"),
		Entry("trailing slash", "hello.py/", "hello.py", "/"),
		Entry("duplicate slashes", "admin//status.cgi//x", "admin/status.cgi", "/x"),
	)

	DescribeTable("Lookup misses",
		func(urlPath string) {
			_, _, err := reg.Lookup(urlPath)
			Expect(err).To(MatchError(cgihost.ErrScriptNotFound))
		},
		Entry("unknown", "nope.py"),
		Entry("excluded", "_lib.py"),
		Entry("not matching patterns", "README"),
		Entry("directory", "admin"),
		Entry("empty", ""),
		Entry("dot-dot", "admin/../hello.py"),
	)
})
