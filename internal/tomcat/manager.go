package tomcat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// DeployOptions describes a deploy command.
//
// Either WAR (a path or URL on the Tomcat host) or Body (an uploaded WAR
// archive) may be set. With Body the archive is sent with PUT.
type DeployOptions struct {
	// Path is the context path, e.g. /myapp. Required.
	Path string
	// WAR is a server-side location, e.g. file:/opt/wars/myapp.war.
	WAR string
	// Config is a server-side context configuration file.
	Config string
	// Tag associates the deployment with a tag name.
	Tag string
	// Update undeploys an existing application at Path first.
	Update bool
	// Version is the parallel deployment version.
	Version string
	// Body is the WAR archive to upload.
	Body io.Reader
}

// List returns the applications deployed on the virtual host.
func (c *Client) List(ctx context.Context) ([]Application, error) {
	body, err := c.get(ctx, OperationList, endpointList, nil)
	if err != nil {
		return nil, err
	}
	return parseList(c.endpointPath(endpointList), body)
}

// ApplicationStatus returns the status ("running" or "stopped") of the
// application deployed at path.
func (c *Client) ApplicationStatus(ctx context.Context, path string) (string, error) {
	apps, err := c.List(ctx)
	if err != nil {
		return "", err
	}
	for _, app := range apps {
		if app.Path == path {
			return app.Status, nil
		}
	}
	return "", fmt.Errorf("%w: no application at context path %q", ErrApplicationNotFound, path)
}

// ServerInfo returns the Tomcat, JVM and OS facts reported by the server.
func (c *Client) ServerInfo(ctx context.Context) (ServerInfo, error) {
	body, err := c.get(ctx, OperationServerInfo, endpointServerInfo, nil)
	if err != nil {
		return nil, err
	}
	return parseServerInfo(c.endpointPath(endpointServerInfo), body)
}

// Start starts the application at path.
func (c *Client) Start(ctx context.Context, path string) error {
	return c.command(ctx, OperationStart, endpointStart, "Started", path, nil)
}

// Stop stops the application at path.
func (c *Client) Stop(ctx context.Context, path string) error {
	return c.command(ctx, OperationStop, endpointStop, "Stopped", path, nil)
}

// Reload reloads the application at path.
func (c *Client) Reload(ctx context.Context, path string) error {
	return c.command(ctx, OperationReload, endpointReload, "Reloaded", path, nil)
}

// Undeploy removes the application at path. version selects one parallel
// deployment and may be empty.
func (c *Client) Undeploy(ctx context.Context, path, version string) error {
	var extra url.Values
	if version != "" {
		extra = url.Values{"version": {version}}
	}
	return c.command(ctx, OperationUndeploy, endpointUndeploy, "Undeployed", path, extra)
}

// Deploy deploys an application from a server-side WAR or an uploaded archive.
func (c *Client) Deploy(ctx context.Context, opts DeployOptions) error {
	if err := validatePath(opts.Path); err != nil {
		return err
	}
	if opts.Body != nil && opts.WAR != "" {
		return fmt.Errorf("deploy: war and an uploaded archive are mutually exclusive")
	}

	query := url.Values{"path": {opts.Path}}
	if opts.WAR != "" {
		query.Set("war", opts.WAR)
	}
	if opts.Config != "" {
		query.Set("config", opts.Config)
	}
	if opts.Tag != "" {
		query.Set("tag", opts.Tag)
	}
	if opts.Update {
		query.Set("update", strconv.FormatBool(true))
	}
	if opts.Version != "" {
		query.Set("version", opts.Version)
	}

	method := http.MethodGet
	if opts.Body != nil {
		method = http.MethodPut
	}

	body, err := c.send(ctx, OperationDeploy, method, endpointDeploy, query, opts.Body)
	if err != nil {
		return err
	}
	return checkCommand(c.endpointPath(endpointDeploy), body, "Deployed", displayPath(opts.Path, opts.Version))
}

// Sessions returns session statistics for the application at path.
func (c *Client) Sessions(ctx context.Context, path string) (*SessionStats, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	body, err := c.get(ctx, OperationSessions, endpointSessions, url.Values{"path": {path}})
	if err != nil {
		return nil, err
	}
	return parseSessions(c.endpointPath(endpointSessions), path, body)
}

// Status returns the full XML server status (JVM memory and connectors).
func (c *Client) Status(ctx context.Context) (*ServerStatus, error) {
	body, err := c.get(ctx, OperationStatus, endpointStatus, url.Values{"XML": {"true"}})
	if err != nil {
		return nil, err
	}
	return parseStatus(c.endpointPath(endpointStatus), body)
}

// ThreadPools returns the thread pool statistics of every connector.
func (c *Client) ThreadPools(ctx context.Context) ([]ThreadPool, error) {
	status, err := c.Status(ctx)
	if err != nil {
		return nil, err
	}
	return status.ThreadPools(), nil
}

// JMXQuery runs an MBean query, e.g. "Catalina:type=ThreadPool,*".
func (c *Client) JMXQuery(ctx context.Context, query string) ([]JMXBean, error) {
	if query == "" {
		return nil, fmt.Errorf("jmx query: query is required")
	}
	body, err := c.get(ctx, OperationJMXQuery, endpointJMXProxy, url.Values{"qry": {query}})
	if err != nil {
		return nil, err
	}
	return parseJMXQuery(c.endpointPath(endpointJMXProxy), body)
}

// JMXGet reads a single MBean attribute.
func (c *Client) JMXGet(ctx context.Context, bean, attribute string) (string, error) {
	if bean == "" || attribute == "" {
		return "", fmt.Errorf("jmx get: bean and attribute are required")
	}
	body, err := c.get(ctx, OperationJMXGet, endpointJMXProxy, url.Values{"get": {bean}, "att": {attribute}})
	if err != nil {
		return "", err
	}
	return parseJMXGet(c.endpointPath(endpointJMXProxy), body)
}

func (c *Client) command(ctx context.Context, operation, endpoint, verb, path string, extra url.Values) error {
	if err := validatePath(path); err != nil {
		return err
	}

	query := url.Values{"path": {path}}
	for k, v := range extra {
		query[k] = v
	}

	body, err := c.get(ctx, operation, endpoint, query)
	if err != nil {
		return err
	}
	return checkCommand(c.endpointPath(endpoint), body, verb, displayPath(path, extra.Get("version")))
}

// Tomcat echoes versioned deployments as path##version.
func displayPath(path, version string) string {
	if version == "" {
		return path
	}
	return path + "##" + version
}

func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("context path is required")
	}
	if path[0] != '/' {
		return fmt.Errorf("context path %q must start with /", path)
	}
	return nil
}
