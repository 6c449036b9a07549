package output

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/giantswarm/mcp-tomcat/internal/tomcat"
)

// newTable creates a table writer with the plain style used for all tool
// output. Colours are not used since the text is read by MCP clients.
func newTable(headers ...interface{}) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(headers))
	return t
}

// ApplicationsTable renders deployed applications.
func ApplicationsTable(apps []tomcat.Application) string {
	t := newTable("PATH", "STATUS", "SESSIONS", "NAME")
	for _, app := range apps {
		t.AppendRow(table.Row{app.Path, app.Status, app.Sessions, app.Name})
	}
	t.AppendFooter(table.Row{"", "", "TOTAL", len(apps)})
	return t.Render()
}

// ServerInfoTable renders server info fields sorted by name.
func ServerInfoTable(info tomcat.ServerInfo) string {
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := newTable("FIELD", "VALUE")
	for _, k := range keys {
		t.AppendRow(table.Row{k, info[k]})
	}
	return t.Render()
}

// ThreadPoolsTable renders connector thread pool statistics.
func ThreadPoolsTable(pools []tomcat.ThreadPool) string {
	t := newTable("CONNECTOR", "MAX", "CURRENT", "BUSY", "IDLE", "REQUESTS", "ERRORS", "MAX TIME (ms)")
	for _, p := range pools {
		t.AppendRow(table.Row{
			p.Connector,
			p.MaxThreads,
			p.CurrentThreadCount,
			p.CurrentThreadsBusy,
			p.CurrentThreadsIdle,
			p.Requests.RequestCount,
			p.Requests.ErrorCount,
			p.Requests.MaxTime,
		})
	}
	return t.Render()
}

// ConnectionsTable renders registered connections. The current connection
// is marked with "*".
func ConnectionsTable(conns []tomcat.ConnectionInfo) string {
	t := newTable("", "INDEX", "ALIAS", "URL", "USER", "TIMEOUT")
	for _, c := range conns {
		marker := ""
		if c.Current {
			marker = "*"
		}
		t.AppendRow(table.Row{marker, c.Index, c.Alias, c.BaseURL, c.Username, c.Timeout.String()})
	}
	return t.Render()
}

// SessionsTable renders the idle-time histogram of an application.
func SessionsTable(stats *tomcat.SessionStats) string {
	t := newTable("IDLE (minutes)", "SESSIONS")
	for _, b := range stats.Buckets {
		t.AppendRow(table.Row{b.Range, b.Count})
	}
	t.AppendFooter(table.Row{"TOTAL", stats.TotalSessions})
	t.SetTitle(fmt.Sprintf("%s (default timeout %d minutes)", stats.Path, stats.DefaultMaxInactiveMinutes))
	return t.Render()
}

// JMXBeansTable renders MBeans as one row per attribute.
func JMXBeansTable(beans []tomcat.JMXBean) string {
	t := newTable("MBEAN", "ATTRIBUTE", "VALUE")
	for _, bean := range beans {
		names := make([]string, 0, len(bean.Attributes))
		for name := range bean.Attributes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			t.AppendRow(table.Row{bean.Name, name, shorten(bean.Attributes[name], 100)})
		}
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, AutoMerge: true}})
	return t.Render()
}

// MemoryTable renders JVM memory figures in MiB.
func MemoryTable(status *tomcat.ServerStatus) string {
	m := status.JVM.Memory
	t := newTable("FREE (MiB)", "USED (MiB)", "TOTAL (MiB)", "MAX (MiB)")
	t.AppendRow(table.Row{mib(m.Free), mib(m.Used), mib(m.Total), mib(m.Max)})
	return t.Render()
}

func mib(b int64) string {
	return strconv.FormatFloat(float64(b)/(1<<20), 'f', 1, 64)
}

func shorten(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
