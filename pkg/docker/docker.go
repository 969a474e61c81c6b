// Package docker talks to the Docker engine API for the few things the
// compose CLI does not cover: the shared network and daemon health.
package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
)

// ManagedLabel marks resources created by hostsolo.
const ManagedLabel = "io.hostsolo.managed"

// API is the subset of the docker client used here.
type API interface {
	Ping(ctx context.Context) (types.Ping, error)
	NetworkInspect(ctx context.Context, networkID string, options types.NetworkInspectOptions) (types.NetworkResource, error)
	NetworkCreate(ctx context.Context, name string, options types.NetworkCreate) (types.NetworkCreateResponse, error)
	Close() error
}

// Client wraps the Docker SDK client.
type Client struct {
	api API
}

// New creates a client from DOCKER_HOST and friends, negotiating the API version.
func New() (*Client, error) {
	inner, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Client{api: inner}, nil
}

// NewWithAPI wraps an existing API implementation.
func NewWithAPI(api API) *Client {
	return &Client{api: api}
}

// Info describes the daemon.
type Info struct {
	APIVersion string
	OSType     string
}

// Ping checks that the daemon is reachable.
func (c *Client) Ping(ctx context.Context) (Info, error) {
	ping, err := c.api.Ping(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("docker ping: %w", err)
	}
	if ping.APIVersion == "" {
		return Info{}, fmt.Errorf("docker ping returned empty API version")
	}
	return Info{APIVersion: ping.APIVersion, OSType: ping.OSType}, nil
}

// EnsureNetwork creates the bridge network name unless it already exists.
// It reports whether a network was created.
func (c *Client) EnsureNetwork(ctx context.Context, name string) (bool, error) {
	_, err := c.api.NetworkInspect(ctx, name, types.NetworkInspectOptions{})
	if err == nil {
		return false, nil
	}
	if !errdefs.IsNotFound(err) {
		return false, fmt.Errorf("failed to inspect network %s: %w", name, err)
	}

	_, err = c.api.NetworkCreate(ctx, name, types.NetworkCreate{
		Driver: "bridge",
		Labels: map[string]string{ManagedLabel: "true"},
	})
	if err != nil {
		return false, fmt.Errorf("failed to create network %s: %w", name, err)
	}
	return true, nil
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	if c.api == nil {
		return nil
	}
	return c.api.Close()
}
