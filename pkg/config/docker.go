package config

import (
	"os"
	"sync"
)

const dockerHostGateway = "host.docker.internal"

var (
	inDockerOnce sync.Once
	inDocker     bool
)

// InDocker reports whether the process runs inside a Docker container.
// The /.dockerenv check runs once.
func InDocker() bool {
	inDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		inDocker = err == nil
	})
	return inDocker
}

// ResolveDatasourceHost maps loopback hosts in a datasource config to the
// Docker host gateway, so a containerized server can reach databases that
// users run on their own machine. Other hosts are returned unchanged.
func ResolveDatasourceHost(host string) string {
	if !InDocker() {
		return host
	}
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return dockerHostGateway
	}
	return host
}
