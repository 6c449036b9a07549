// Package tomcattest provides a fake Tomcat Manager for tests.
package tomcattest

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/giantswarm/mcp-tomcat/internal/tomcat"
)

// Credentials accepted by the fake server.
const (
	Username = "admin"
	Password = "s3cret"
)

// Canned Manager replies.
const (
	ServerInfoReply = "OK - Server info\n" +
		"Tomcat Version: Apache Tomcat/9.0.80\n" +
		"OS Name: Linux\n" +
		"OS Version: 6.1.0\n" +
		"OS Architecture: amd64\n" +
		"JVM Version: 17.0.8+7\n" +
		"JVM Vendor: Eclipse Adoptium\n"

	ListReply = "OK - Listed applications for virtual host [localhost]\n" +
		"/manager:running:1:manager\n" +
		"/:running:0:ROOT\n" +
		"/shop:running:12:shop\n" +
		"/docs:stopped:0:docs\n"

	StatusReply = `<?xml version="1.0" encoding="utf-8"?><status>` +
		`<jvm><memory free='100' total='400' max='1000'/></jvm>` +
		`<connector name='"http-nio-8080"'><threadInfo maxThreads="200" currentThreadCount="10" currentThreadsBusy="3" />` +
		`<requestInfo maxTime="12" processingTime="340" requestCount="85" errorCount="7" bytesReceived="0" bytesSent="1180" />` +
		`</connector>` +
		`<connector name='"ajp-nio-8009"'><threadInfo maxThreads="100" currentThreadCount="2" currentThreadsBusy="0" />` +
		`<requestInfo maxTime="0" processingTime="0" requestCount="0" errorCount="0" bytesReceived="0" bytesSent="0" />` +
		`</connector></status>`

	SessionsReply = "OK - Session information for application at context path [/shop]\n" +
		"Default maximum session inactive interval is [30] minutes\n" +
		"<1 minutes: [4] sessions\n" +
		"1 - <2 minutes: [1] sessions\n"

	JMXQueryReply = "OK - Number of results: 1\n\n" +
		"Name: Catalina:type=Server\n" +
		"modelerType: org.apache.catalina.core.StandardServer\n" +
		"serverInfo: Apache Tomcat/9.0.80\n"
)

// Server is a fake Tomcat Manager. Unknown paths get 404 and requests
// without the expected Basic credentials get 401.
type Server struct {
	*httptest.Server

	t        testing.TB
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []*http.Request
}

// NewServer starts a fake Manager answering serverinfo, list, status,
// sessions and jmxproxy queries, and the start/stop/reload/deploy/undeploy
// commands with their OK replies.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{t: t, handlers: make(map[string]http.HandlerFunc)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	t.Cleanup(s.Close)

	s.Reply("/manager/text/serverinfo", ServerInfoReply)
	s.Reply("/manager/text/list", ListReply)
	s.Reply("/manager/status", StatusReply)
	s.Reply("/manager/text/sessions", SessionsReply)
	s.Handle("/manager/jmxproxy", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if bean := q.Get("get"); bean != "" {
			_, _ = w.Write([]byte("OK - Attribute get '" + bean + "' - " + q.Get("att") + " = 200\n"))
			return
		}
		_, _ = w.Write([]byte(JMXQueryReply))
	})
	for cmd, verb := range map[string]string{
		"start":    "Started",
		"stop":     "Stopped",
		"reload":   "Reloaded",
		"deploy":   "Deployed",
		"undeploy": "Undeployed",
	} {
		s.Handle("/manager/text/"+cmd, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("OK - " + verb + " application at context path [" + r.URL.Query().Get("path") + "]\n"))
		})
	}
	return s
}

// Handle installs h for path, replacing any previous handler.
func (s *Server) Handle(path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[path] = h
}

// Reply makes path answer with body.
func (s *Server) Reply(path, body string) {
	s.Handle(path, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	})
}

// Requests returns the requests received so far.
func (s *Server) Requests() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*http.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestCount returns how many requests were received.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// LastRequest returns the most recent request, or nil.
func (s *Server) LastRequest() *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

// Config returns a client configuration pointing at the server.
func (s *Server) Config() tomcat.ClientConfig {
	s.t.Helper()
	host, portStr, err := net.SplitHostPort(s.Listener.Addr().String())
	if err != nil {
		s.t.Fatalf("split listener address: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		s.t.Fatalf("parse listener port: %v", err)
	}
	return tomcat.ClientConfig{Host: host, Port: port, Username: Username, Password: Password}
}

// HostPort returns the host and port as strings.
func (s *Server) HostPort() (string, string) {
	s.t.Helper()
	host, port, err := net.SplitHostPort(s.Listener.Addr().String())
	if err != nil {
		s.t.Fatalf("split listener address: %v", err)
	}
	return host, port
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.Clone(r.Context()))
	h, ok := s.handlers[r.URL.Path]
	s.mu.Unlock()

	user, pass, hasAuth := r.BasicAuth()
	if !hasAuth || user != Username || pass != Password {
		w.Header().Set("WWW-Authenticate", `Basic realm="Tomcat Manager Application"`)
		http.Error(w, "401 Unauthorized", http.StatusUnauthorized)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}
