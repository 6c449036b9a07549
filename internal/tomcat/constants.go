package tomcat

import "time"

const (
	// Connection defaults used when a ClientConfig field is left empty.
	DefaultScheme      = "http"
	DefaultPort        = 8080
	DefaultUsername    = "tomcat"
	DefaultPassword    = "tomcat"
	DefaultTimeout     = 15 * time.Second
	DefaultManagerPath = "/manager"
	DefaultUserAgent   = "mcp-tomcat"

	// maxResponseSize caps the amount of a Manager reply that is read.
	maxResponseSize = 8 << 20
)

// Manager endpoints relative to the manager path.
const (
	endpointList       = "/text/list"
	endpointServerInfo = "/text/serverinfo"
	endpointStart      = "/text/start"
	endpointStop       = "/text/stop"
	endpointReload     = "/text/reload"
	endpointDeploy     = "/text/deploy"
	endpointUndeploy   = "/text/undeploy"
	endpointSessions   = "/text/sessions"
	endpointStatus     = "/status"
	endpointJMXProxy   = "/jmxproxy"
)

// Operation names used for logging and metrics.
const (
	OperationList       = "list"
	OperationServerInfo = "serverinfo"
	OperationStart      = "start"
	OperationStop       = "stop"
	OperationReload     = "reload"
	OperationDeploy     = "deploy"
	OperationUndeploy   = "undeploy"
	OperationSessions   = "sessions"
	OperationStatus     = "status"
	OperationJMXQuery   = "jmx_query"
	OperationJMXGet     = "jmx_get"
)

// Reply prefixes written by the Manager text interface.
const (
	replyOK   = "OK - "
	replyFail = "FAIL - "
	// The JMX proxy reports failures with this prefix instead of FAIL.
	replyError = "Error - "
)

// Application states reported by the list command.
const (
	StatusRunning = "running"
	StatusStopped = "stopped"
)
