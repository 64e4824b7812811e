package cgihost_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gur-shatz/go-cgi/pkg/cgihost"
)

var _ = Describe("ParseResponse", func() {
	It("splits headers and body", func() {
		resp, err := cgihost.ParseResponse([]byte("Content-Type: text/plain\n\nYou sent: hello\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Status).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(Equal("text/plain"))
		Expect(string(resp.Body)).To(Equal("You sent: hello\n"))
	})

	It("accepts CRLF and keeps everything after the first blank line", func() {
		out := "Content-Type: text/html\r\n\n\r\n\n<html><body><h1>Hello, World! 🥹</h1></body></html>\n"
		resp, err := cgihost.ParseResponse([]byte(out))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Header.Get("Content-Type")).To(Equal("text/html"))
		Expect(string(resp.Body)).To(Equal("\r\n\n<html><body><h1>Hello, World! 🥹</h1></body></html>\n"))
	})

	It("uses and removes the Status header", func() {
		resp, err := cgihost.ParseResponse([]byte("Status: 404 Not Found\nContent-Type: text/plain\n\nmissing"))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Status).To(Equal(http.StatusNotFound))
		Expect(resp.Header).NotTo(HaveKey("Status"))
	})

	It("redirects on Location without Status", func() {
		resp, err := cgihost.ParseResponse([]byte("Location: /elsewhere\n\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Status).To(Equal(http.StatusFound))
		Expect(resp.Header.Get("Location")).To(Equal("/elsewhere"))
	})

	It("canonicalizes and keeps repeated headers", func() {
		resp, err := cgihost.ParseResponse([]byte("content-type: text/plain\nset-cookie: a=1\nSet-Cookie: b=2\n\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Header.Get("Content-Type")).To(Equal("text/plain"))
		Expect(resp.Header.Values("Set-Cookie")).To(Equal([]string{"a=1", "b=2"}))
	})

	DescribeTable("invalid output",
		func(out string) {
			_, err := cgihost.ParseResponse([]byte(out))
			Expect(err).To(MatchError(cgihost.ErrInvalidResponse))
		},
		Entry("empty", ""),
		Entry("no blank line", "Content-Type: text/plain\n"),
		Entry("no headers", "\nbody"),
		Entry("body without headers", "hello world\n\n"),
		Entry("bad status", "Status: abc\n\n"),
	)
})
