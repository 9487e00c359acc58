package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Images for the non-postgres datasources exercised by adapter tests.
const (
	MySQLImage = "mysql:8.4"
	MongoImage = "mongo:7"
)

// SourceServer is a running datasource container and the credentials to reach it.
type SourceServer struct {
	Container testcontainers.Container
	Host      string
	Port      int
	User      string
	Password  string
	Database  string
}

type sharedServer struct {
	once   sync.Once
	server *SourceServer
	err    error
}

func (s *sharedServer) get(t *testing.T, name string, setup func() (*SourceServer, error)) *SourceServer {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	s.once.Do(func() {
		s.server, s.err = setup()
	})
	if s.err != nil {
		t.Fatalf("Failed to setup %s: %v", name, s.err)
	}
	return s.server
}

var (
	sharedMySQL sharedServer
	sharedMongo sharedServer
)

// GetTestMySQL returns a shared MySQL container with an empty SourceDatabase.
func GetTestMySQL(t *testing.T) *SourceServer {
	t.Helper()
	return sharedMySQL.get(t, "mysql", func() (*SourceServer, error) {
		return startSourceServer(testcontainers.ContainerRequest{
			Image:        MySQLImage,
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": testPassword,
				"MYSQL_DATABASE":      SourceDatabase,
				"MYSQL_USER":          testUser,
				"MYSQL_PASSWORD":      testPassword,
			},
			WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").
				WithStartupTimeout(120 * time.Second),
		}, "3306", testUser)
	})
}

// GetTestMongo returns a shared MongoDB container with a root user.
func GetTestMongo(t *testing.T) *SourceServer {
	t.Helper()
	return sharedMongo.get(t, "mongodb", func() (*SourceServer, error) {
		return startSourceServer(testcontainers.ContainerRequest{
			Image:        MongoImage,
			ExposedPorts: []string{"27017/tcp"},
			Env: map[string]string{
				"MONGO_INITDB_ROOT_USERNAME": testUser,
				"MONGO_INITDB_ROOT_PASSWORD": testPassword,
			},
			WaitingFor: wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		}, "27017", testUser)
	})
}

func startSourceServer(req testcontainers.ContainerRequest, port, user string) (*SourceServer, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", req.Image, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	return &SourceServer{
		Container: container,
		Host:      host,
		Port:      mapped.Int(),
		User:      user,
		Password:  testPassword,
		Database:  SourceDatabase,
	}, nil
}
