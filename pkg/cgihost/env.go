package cgihost

import (
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const serverSoftware = "go-cgi"

// MetaVars builds the RFC 3875 environment for one script invocation.
// Pass-through variables are applied first so request variables win.
// CONTENT_LENGTH and CONTENT_TYPE are only set when there is a body.
func MetaVars(r *http.Request, cfg *Config, script, pathInfo string, bodyLen int) []string {
	meta := make(map[string]string)

	for _, name := range cfg.Env {
		if v, ok := os.LookupEnv(name); ok {
			meta[name] = v
		}
	}

	for k, vs := range r.Header {
		switch k {
		case "Content-Type", "Content-Length", "Proxy":
			// HTTP_PROXY is never set from a request header (httpoxy).
			continue
		}
		meta["HTTP_"+strings.ToUpper(strings.ReplaceAll(k, "-", "_"))] = strings.Join(vs, ", ")
	}
	if r.Host != "" {
		meta["HTTP_HOST"] = r.Host
	}

	host, port := serverHostPort(r)
	if cfg.ServerName != "" {
		host = cfg.ServerName
	}

	meta["GATEWAY_INTERFACE"] = "CGI/1.1"
	meta["SERVER_SOFTWARE"] = serverSoftware
	meta["SERVER_NAME"] = host
	meta["SERVER_PORT"] = port
	meta["SERVER_PROTOCOL"] = r.Proto
	meta["REQUEST_METHOD"] = r.Method
	meta["REQUEST_URI"] = r.URL.RequestURI()
	meta["QUERY_STRING"] = r.URL.RawQuery
	meta["SCRIPT_NAME"] = cfg.ScriptURL(script)
	meta["SCRIPT_FILENAME"] = filepath.Join(cfg.CGIDir, filepath.FromSlash(script))
	meta["PATH_INFO"] = pathInfo
	if pathInfo != "" {
		meta["PATH_TRANSLATED"] = filepath.Join(cfg.CGIDir, filepath.FromSlash(pathInfo))
	}

	remoteHost, remotePort, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remoteHost = r.RemoteAddr
	}
	meta["REMOTE_ADDR"] = remoteHost
	meta["REMOTE_HOST"] = remoteHost
	if remotePort != "" {
		meta["REMOTE_PORT"] = remotePort
	}

	if bodyLen > 0 {
		meta["CONTENT_LENGTH"] = strconv.Itoa(bodyLen)
		if ct := r.Header.Get("Content-Type"); ct != "" {
			meta["CONTENT_TYPE"] = ct
		}
	}

	env := make([]string, 0, len(meta))
	for k, v := range meta {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// serverHostPort splits the request's Host. Without an explicit port it
// falls back to 443 for TLS and 80 otherwise.
func serverHostPort(r *http.Request) (string, string) {
	host, port, err := net.SplitHostPort(r.Host)
	if err != nil {
		host = r.Host
		port = ""
	}
	if port == "" {
		port = "80"
		if r.TLS != nil {
			port = "443"
		}
	}
	return strings.ToLower(host), port
}
