package dynamock

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/nisimpson/dynafield"
	"golang.org/x/sync/errgroup"
)

// TableManager manages DynamoDB Local tables for testing, providing cleanup.
type TableManager struct {
	local  *LocalDynamoDB
	tables []string
}

// NewTableManager creates a new table manager with the given DynamoDB client.
func NewTableManager(client *dynamodb.Client) *TableManager {
	return &TableManager{local: &LocalDynamoDB{Client: client}}
}

// CreateTestTable creates a table with the dynafield schema and tracks it for
// cleanup.
func (tm *TableManager) CreateTestTable(ctx context.Context, table *dynafield.Table) error {
	if err := tm.local.CreateTable(ctx, table); err != nil {
		return err
	}
	tm.tables = append(tm.tables, table.TableName)
	return nil
}

// Cleanup deletes all tables created by this manager.
func (tm *TableManager) Cleanup(ctx context.Context) error {
	for _, name := range tm.tables {
		if err := tm.local.DeleteTable(ctx, name); err != nil {
			return err
		}
	}
	tm.tables = tm.tables[:0]
	return nil
}

// TableNames returns the names of all tables managed by this manager.
func (tm *TableManager) TableNames() []string {
	return append([]string(nil), tm.tables...)
}

var unsafeTableChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

// NewTestTableName generates a unique table name. Characters DynamoDB does not
// accept in table names are replaced.
func NewTestTableName(prefix string) string {
	name := fmt.Sprintf("%s-%d", unsafeTableChars.ReplaceAllString(prefix, "-"), time.Now().UnixNano())
	if len(name) > 255 {
		name = name[len(name)-255:]
	}
	return name
}

// WithIsolatedTable runs fn with a table that only exists for the duration of
// the call.
func WithIsolatedTable(t *testing.T, client *dynamodb.Client, fn func(table *dynafield.Table)) {
	t.Helper()
	ctx := context.Background()
	table := dynafield.NewTable(NewTestTableName("test-" + t.Name()))

	tm := NewTableManager(client)
	defer func() {
		if err := tm.Cleanup(ctx); err != nil {
			t.Errorf("failed to cleanup table %s: %v", table.TableName, err)
		}
	}()

	if err := tm.CreateTestTable(ctx, table); err != nil {
		t.Fatalf("failed to create test table %s: %v", table.TableName, err)
	}

	fn(table)
}

// WithLocalDynamoDB runs fn against DynamoDB Local, skipping the test in short
// mode or when nothing listens on port.
func WithLocalDynamoDB(t *testing.T, port int, fn func(local *LocalDynamoDB)) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	local := NewLocalDynamoDB(port)
	if !local.IsAvailable(context.Background()) {
		t.Skipf("DynamoDB Local not available on port %d", port)
	}

	fn(local)
}

// WithDefaultLocalDynamoDB runs fn against DynamoDB Local on DefaultLocalPort.
func WithDefaultLocalDynamoDB(t *testing.T, fn func(local *LocalDynamoDB)) {
	t.Helper()
	WithLocalDynamoDB(t, DefaultLocalPort, fn)
}

// Seeder writes test entities into a table through any DynamoDB client,
// including MemoryClient.
type Seeder struct {
	client      DynamoDBAPI
	table       *dynafield.Table
	concurrency int
}

// SeederOption configures a Seeder.
type SeederOption func(*Seeder)

// WithConcurrency bounds the number of concurrent writes of SeedEntities.
func WithConcurrency(n int) SeederOption {
	return func(s *Seeder) { s.concurrency = n }
}

// NewSeeder creates a seeder writing to table.
func NewSeeder(client DynamoDBAPI, table *dynafield.Table, opts ...SeederOption) *Seeder {
	s := &Seeder{client: client, table: table, concurrency: 4}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SeedEntity writes a single entity.
func (s *Seeder) SeedEntity(ctx context.Context, entity dynafield.Marshaler) error {
	putInput, err := s.table.MarshalPut(entity)
	if err != nil {
		return err
	}
	if _, err := s.client.PutItem(ctx, putInput); err != nil {
		return fmt.Errorf("failed to put entity: %w", err)
	}
	return nil
}

// SeedEntities writes entities concurrently and returns the first error.
func (s *Seeder) SeedEntities(ctx context.Context, entities ...dynafield.Marshaler) error {
	g, ctx := errgroup.WithContext(ctx)
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for _, entity := range entities {
		g.Go(func() error {
			return s.SeedEntity(ctx, entity)
		})
	}
	return g.Wait()
}

// SeedBatch writes entities with batch write requests of at most
// [dynafield.MaxBatchSize] items.
func (s *Seeder) SeedBatch(ctx context.Context, entities ...dynafield.Marshaler) error {
	batches, err := s.table.MarshalBatch(entities)
	if err != nil {
		return err
	}
	for _, batch := range batches {
		out, err := s.client.BatchWriteItem(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to batch write: %w", err)
		}
		if n := len(out.UnprocessedItems[s.table.TableName]); n > 0 {
			return fmt.Errorf("batch write left %d unprocessed items", n)
		}
	}
	return nil
}

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	Port             int
	SkipIfNotRunning bool
	TablePrefix      string
	CleanupTimeout   time.Duration
}

// DefaultIntegrationTestConfig returns a default configuration for integration tests.
func DefaultIntegrationTestConfig() *IntegrationTestConfig {
	return &IntegrationTestConfig{
		Port:             DefaultLocalPort,
		SkipIfNotRunning: true,
		TablePrefix:      "integration-test",
		CleanupTimeout:   30 * time.Second,
	}
}

// RunIntegrationTest creates a fresh table on DynamoDB Local, runs fn and
// deletes the table.
func RunIntegrationTest(t *testing.T, config *IntegrationTestConfig, fn func(local *LocalDynamoDB, table *dynafield.Table)) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if config == nil {
		config = DefaultIntegrationTestConfig()
	}

	local := NewLocalDynamoDB(config.Port)
	ctx := context.Background()

	if !local.IsAvailable(ctx) {
		if config.SkipIfNotRunning {
			t.Skipf("DynamoDB Local not available on port %d", config.Port)
		}
		t.Fatalf("DynamoDB Local not available on port %d", config.Port)
	}

	table := dynafield.NewTable(NewTestTableName(config.TablePrefix))
	if err := local.CreateTable(ctx, table); err != nil {
		t.Fatalf("failed to create test table %s: %v", table.TableName, err)
	}

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), config.CleanupTimeout)
		defer cancel()
		if err := local.DeleteTable(cleanupCtx, table.TableName); err != nil {
			t.Errorf("failed to cleanup table %s: %v", table.TableName, err)
		}
	}()

	fn(local, table)
}
