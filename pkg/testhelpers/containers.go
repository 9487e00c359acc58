package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/migrations"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/config"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/database"
)

// PostgresImage is the image used for both the metadata store and the
// postgresql datasource in integration tests.
const PostgresImage = "postgres:17-alpine"

const (
	testUser     = "lakehouse"
	testPassword = "test_password"
	// SourceDatabase holds sample tables that datasource tests introspect.
	SourceDatabase = "source_data"
	metaDatabase   = "lakehouse_meta"
)

// TestDB is a shared PostgreSQL container.
// Pool connects to SourceDatabase.
type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	Host      string
	Port      int
	User      string
	Password  string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       SourceDatabase,
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
		},
		// postgres logs readiness twice: once for the init server, once for the real one
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		testUser, testPassword, host, port.Port(), SourceDatabase)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("test database never became reachable: %w", err)
	}

	return &TestDB{
		Container: container,
		Pool:      pool,
		Host:      host,
		Port:      port.Int(),
		User:      testUser,
		Password:  testPassword,
	}, nil
}

// MetaDB is the metadata store with migrations applied.
type MetaDB struct {
	DB *database.DB
}

var (
	sharedMetaDB     *MetaDB
	sharedMetaDBOnce sync.Once
	sharedMetaDBErr  error
)

// GetMetaDB returns a shared, migrated metadata database for integration tests.
func GetMetaDB(t *testing.T) *MetaDB {
	t.Helper()

	testDB := GetTestDB(t)

	sharedMetaDBOnce.Do(func() {
		sharedMetaDB, sharedMetaDBErr = setupMetaDB(testDB)
	})

	if sharedMetaDBErr != nil {
		t.Fatalf("Failed to setup metadata database: %v", sharedMetaDBErr)
	}

	return sharedMetaDB
}

func setupMetaDB(testDB *TestDB) (*MetaDB, error) {
	ctx := context.Background()

	if _, err := testDB.Pool.Exec(ctx, "CREATE DATABASE "+metaDatabase); err != nil {
		return nil, fmt.Errorf("failed to create metadata database: %w", err)
	}

	db, err := database.NewConnection(ctx, &config.DatabaseConfig{
		Host:           testDB.Host,
		Port:           testDB.Port,
		User:           testDB.User,
		Password:       testDB.Password,
		Database:       metaDatabase,
		SSLMode:        "disable",
		MaxConnections: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to metadata database: %w", err)
	}

	if err := database.RunMigrations(db, migrations.FS, zap.NewNop()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &MetaDB{DB: db}, nil
}

// ScopedContext returns a context carrying a database scope on the metadata store.
// The scope is released when the test ends.
func (m *MetaDB) ScopedContext(t *testing.T) context.Context {
	t.Helper()

	scope, err := m.DB.Acquire(context.Background())
	if err != nil {
		t.Fatalf("failed to acquire database scope: %v", err)
	}
	t.Cleanup(scope.Close)

	return database.SetScope(context.Background(), scope)
}

// Truncate empties every metadata table.
func (m *MetaDB) Truncate(t *testing.T) {
	t.Helper()

	_, err := m.DB.Exec(context.Background(), `TRUNCATE users, projects, datasources, datatables, warehouses, warehouse_datatables CASCADE`)
	if err != nil {
		t.Fatalf("failed to truncate metadata tables: %v", err)
	}
}

// RedisImage backs the user cache in integration tests.
const RedisImage = "redis:7-alpine"

var (
	sharedRedis     *redis.Client
	sharedRedisOnce sync.Once
	sharedRedisErr  error
)

// GetTestRedis returns a client for a shared redis container.
func GetTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedRedisOnce.Do(func() {
		sharedRedis, sharedRedisErr = setupRedis()
	})

	if sharedRedisErr != nil {
		t.Fatalf("Failed to setup redis: %v", sharedRedisErr)
	}
	return sharedRedis
}

func setupRedis() (*redis.Client, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        RedisImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get redis host: %w", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		return nil, fmt.Errorf("failed to get redis port: %w", err)
	}

	return database.NewRedisClient(ctx, &config.RedisConfig{
		Host:          host,
		Port:          port.Int(),
		TimeoutMillis: 2000,
	})
}
