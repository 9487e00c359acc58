package config

import "testing"

func TestResolveDatasourceHost_RemoteHostsUnchanged(t *testing.T) {
	for _, host := range []string{"db.example.com", "10.1.2.3", "host.docker.internal"} {
		if got := ResolveDatasourceHost(host); got != host {
			t.Errorf("ResolveDatasourceHost(%q) = %q, want unchanged", host, got)
		}
	}
}

func TestResolveDatasourceHost_Loopback(t *testing.T) {
	for _, host := range []string{"localhost", "127.0.0.1", "::1"} {
		got := ResolveDatasourceHost(host)
		want := host
		if InDocker() {
			want = dockerHostGateway
		}
		if got != want {
			t.Errorf("ResolveDatasourceHost(%q) = %q, want %q", host, got, want)
		}
	}
}
