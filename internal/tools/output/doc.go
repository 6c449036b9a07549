// Package output shapes Tomcat data for MCP tool responses.
//
// Tool results are JSON by default. Tools that accept an "output" argument
// can also render a plain text table (go-pretty, light style) for
// applications, server info, thread pools, sessions, MBeans and
// connections.
//
// Large results are bounded: list-like results are truncated to
// Config.MaxItems with a warning in the "_warnings" field. JSON lists that
// still exceed Config.MaxResponseBytes drop trailing items until they fit;
// text tables are cut at the same limit.
//
//	cfg := output.DefaultConfig()
//	apps, warning := output.TruncateGeneric(apps, cfg.MaxItems)
//	text, err := output.ListJSON("applications", apps, total, nil, cfg.MaxResponseBytes)
package output
