package tomcat

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testUser     = "admin"
	testPassword = "s3cret"
)

// Canned Manager replies.
const (
	serverInfoReply = "OK - Server info\n" +
		"Tomcat Version: Apache Tomcat/7.0.22\n" +
		"OS Name: Linux\n" +
		"OS Version: 2.6.32-279.el6.x86_64\n" +
		"OS Architecture: amd64\n" +
		"JVM Version: 1.7.0_40-b43\n" +
		"JVM Vendor: Oracle Corporation\n"

	listReply = "OK - Listed applications for virtual host localhost\n" +
		"/manager:running:1:manager\n" +
		"/:running:0:ROOT\n" +
		"/docs:stopped:0:docs\n" +
		"/shop:running:12:shop##2\n"

	statusReply = `<?xml version="1.0" encoding="utf-8"?><status>` +
		`<jvm><memory free='144529816' total='179306496' max='1914699776'/>` +
		`<memorypool name='G1 Eden Space' type='Heap memory' usageInit='13631488' usageCommitted='108003328' usageMax='-1' usageUsed='30408704'/>` +
		`</jvm>` +
		`<connector name='"http-nio-8080"'><threadInfo maxThreads="200" currentThreadCount="10" currentThreadsBusy="3" />` +
		`<requestInfo maxTime="1224" processingTime="3360" requestCount="85" errorCount="7" bytesReceived="0" bytesSent="1180263" />` +
		`<workers></workers></connector>` +
		`<connector name='"ajp-nio-8009"'><threadInfo maxThreads="100" currentThreadCount="4" currentThreadsBusy="0" />` +
		`<requestInfo maxTime="0" processingTime="0" requestCount="0" errorCount="0" bytesReceived="0" bytesSent="0" />` +
		`<workers></workers></connector></status>`
)

// fakeManager is an in-process Tomcat Manager. Handlers are keyed by path.
type fakeManager struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []*http.Request
}

func newFakeManager(t *testing.T) *fakeManager {
	t.Helper()
	f := &fakeManager{t: t, handlers: make(map[string]http.HandlerFunc)}
	f.server = httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeManager) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

func (f *fakeManager) reply(path, body string) {
	f.handle(path, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})
}

func (f *fakeManager) serveHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Clone(r.Context()))
	h, ok := f.handlers[r.URL.Path]
	f.mu.Unlock()

	user, pass, hasAuth := r.BasicAuth()
	if !hasAuth || user != testUser || pass != testPassword {
		w.Header().Set("WWW-Authenticate", `Basic realm="Tomcat Manager Application"`)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h(w, r)
}

func (f *fakeManager) lastRequest() *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(f.t, f.requests, "no request received")
	return f.requests[len(f.requests)-1]
}

func (f *fakeManager) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// config returns a ClientConfig pointing at the fake server.
func (f *fakeManager) config() ClientConfig {
	f.t.Helper()
	host, portStr, err := net.SplitHostPort(f.server.Listener.Addr().String())
	require.NoError(f.t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(f.t, err)
	return ClientConfig{Host: host, Port: port, Username: testUser, Password: testPassword}
}

func (f *fakeManager) client(opts ...ClientOption) *Client {
	f.t.Helper()
	c, err := NewClient(f.config(), opts...)
	require.NoError(f.t, err)
	return c
}
