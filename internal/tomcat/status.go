package tomcat

import (
	"encoding/xml"
	"strings"
)

// ServerStatus is the document served by /manager/status?XML=true.
type ServerStatus struct {
	XMLName xml.Name `xml:"status" json:"-"`

	JVM struct {
		Memory struct {
			Free  int64 `xml:"free,attr" json:"free"`
			Total int64 `xml:"total,attr" json:"total"`
			Max   int64 `xml:"max,attr" json:"max"`
			// Used is calculated as Total - Free.
			Used int64 `xml:"-" json:"used"`
		} `xml:"memory" json:"memory"`

		MemoryPools []MemoryPool `xml:"memorypool" json:"memoryPools"`
	} `xml:"jvm" json:"jvm"`

	Connectors []Connector `xml:"connector" json:"connectors"`
}

// MemoryPool is one JVM memory pool.
type MemoryPool struct {
	Name           string `xml:"name,attr" json:"name"`
	Type           string `xml:"type,attr" json:"type"`
	UsageInit      int64  `xml:"usageInit,attr" json:"usageInit"`
	UsageCommitted int64  `xml:"usageCommitted,attr" json:"usageCommitted"`
	UsageMax       int64  `xml:"usageMax,attr" json:"usageMax"`
	UsageUsed      int64  `xml:"usageUsed,attr" json:"usageUsed"`
}

// Connector is one HTTP/AJP connector with its thread pool and request counters.
type Connector struct {
	Name string `xml:"name,attr" json:"name"`

	ThreadInfo struct {
		MaxThreads         int64 `xml:"maxThreads,attr" json:"maxThreads"`
		CurrentThreadCount int64 `xml:"currentThreadCount,attr" json:"currentThreadCount"`
		CurrentThreadsBusy int64 `xml:"currentThreadsBusy,attr" json:"currentThreadsBusy"`
	} `xml:"threadInfo" json:"threadInfo"`

	RequestInfo RequestInfo `xml:"requestInfo" json:"requestInfo"`
}

// RequestInfo holds the request counters of a connector.
type RequestInfo struct {
	MaxTime        int64 `xml:"maxTime,attr" json:"maxTime"`
	ProcessingTime int64 `xml:"processingTime,attr" json:"processingTime"`
	RequestCount   int64 `xml:"requestCount,attr" json:"requestCount"`
	ErrorCount     int64 `xml:"errorCount,attr" json:"errorCount"`
	BytesReceived  int64 `xml:"bytesReceived,attr" json:"bytesReceived"`
	BytesSent      int64 `xml:"bytesSent,attr" json:"bytesSent"`
}

// ThreadPool is the flattened thread pool statistics of one connector.
type ThreadPool struct {
	Connector          string      `json:"connector"`
	MaxThreads         int64       `json:"maxThreads"`
	CurrentThreadCount int64       `json:"currentThreadCount"`
	CurrentThreadsBusy int64       `json:"currentThreadsBusy"`
	CurrentThreadsIdle int64       `json:"currentThreadsIdle"`
	Requests           RequestInfo `json:"requests"`
}

// parseStatus decodes the XML status document. A document without
// connectors is not Tomcat status data.
func parseStatus(endpoint, body string) (*ServerStatus, error) {
	if strings.TrimSpace(body) == "" {
		return nil, newFormatError(endpoint, "empty response body")
	}

	var status ServerStatus
	if err := xml.Unmarshal([]byte(body), &status); err != nil {
		return nil, newFormatError(endpoint, "invalid status XML: %v", err)
	}
	if len(status.Connectors) == 0 {
		return nil, newFormatError(endpoint, "not tomcat server status data: no connectors")
	}

	status.JVM.Memory.Used = status.JVM.Memory.Total - status.JVM.Memory.Free
	return &status, nil
}

// ThreadPools flattens the connector thread information.
func (s *ServerStatus) ThreadPools() []ThreadPool {
	pools := make([]ThreadPool, 0, len(s.Connectors))
	for _, c := range s.Connectors {
		pools = append(pools, ThreadPool{
			Connector:          unquote(c.Name),
			MaxThreads:         c.ThreadInfo.MaxThreads,
			CurrentThreadCount: c.ThreadInfo.CurrentThreadCount,
			CurrentThreadsBusy: c.ThreadInfo.CurrentThreadsBusy,
			CurrentThreadsIdle: c.ThreadInfo.CurrentThreadCount - c.ThreadInfo.CurrentThreadsBusy,
			Requests:           c.RequestInfo,
		})
	}
	return pools
}

// Tomcat quotes connector names, e.g. "http-nio-8080" including the quotes.
func unquote(name string) string {
	return strings.Trim(name, `"'`)
}
