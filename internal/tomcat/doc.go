// Package tomcat provides a client for the Apache Tomcat Manager HTTP API
// together with a registry of named connections.
//
// The client speaks to the plain-text interface under /manager/text, the
// XML server status page under /manager/status and the JMX proxy under
// /manager/jmxproxy. Every request is authenticated with HTTP Basic auth
// and is sent exactly once; retrying is left to the caller because most
// Manager commands (deploy, undeploy) are not safe to repeat.
//
// Three kinds of failure are reported:
//
//   - *RequestError: the Manager request failed. The server could not be
//     reached, answered with a non-2xx status, or rejected the command with
//     a "FAIL - " reply. The error carries the endpoint and the status code.
//   - *FormatError: the reply did not have the expected shape. Parsers never
//     return a partial result together with a nil error.
//   - ErrConnectionNotFound: the alias or index passed to the Registry is
//     not connected. This is a usage error and is never wrapped in a
//     RequestError.
//
// Example usage:
//
//	reg := tomcat.NewRegistry()
//	defer reg.CloseAll()
//
//	if _, err := reg.Connect("qa", tomcat.ClientConfig{Host: "qa-tomcat", Port: 8080}); err != nil {
//		return err
//	}
//
//	conn, err := reg.Get("qa")
//	if err != nil {
//		return err
//	}
//
//	info, err := conn.Client.ServerInfo(ctx)
//	if err != nil {
//		return err
//	}
//	fmt.Println(info["Tomcat Version"])
package tomcat
