package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/dgraph-io/badger/v4"
	"github.com/spf13/afero"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/codegangsta/triphelper/internal/assoc"
	"github.com/codegangsta/triphelper/internal/assoc/badgerstore"
	"github.com/codegangsta/triphelper/internal/assoc/dynamostore"
	"github.com/codegangsta/triphelper/internal/assoc/filestore"
	"github.com/codegangsta/triphelper/internal/assoc/sqlitestore"
	"github.com/codegangsta/triphelper/internal/config"
)

func noClose() error { return nil }

// openStore opens the configured association store. The returned function
// releases it.
func openStore(ctx context.Context, cfg config.StoreConfig) (assoc.Store, func() error, error) {
	slog.DebugContext(ctx, "opening store", slog.String("driver", cfg.Driver), slog.String("path", cfg.Path))
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{})
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't open sqlite db: %w", err)
		}
		s, err := sqlitestore.Open(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, db.Close, nil
	case config.DriverBadger:
		opts := badger.DefaultOptions(cfg.Path).WithLogger(nil)
		db, err := badger.Open(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't open badger db: %w", err)
		}
		return badgerstore.New(db), db.Close, nil
	case config.DriverFile:
		s, err := filestore.Open(afero.NewOsFs(), cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, noClose, nil
	case config.DriverDynamoDB:
		client, err := dynamoClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return dynamostore.New(client, cfg.Table), noClose, nil
	case config.DriverMemory:
		return assoc.NewMemory(), noClose, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// initStore creates whatever schema the configured store needs.
func initStore(ctx context.Context, cfg config.StoreConfig) error {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{})
		if err != nil {
			return fmt.Errorf("couldn't open sqlite db: %w", err)
		}
		defer db.Close()
		if err := sqlitestore.Init(ctx, db); err != nil {
			return fmt.Errorf("couldn't initialize sqlite db: %w", err)
		}
	case config.DriverDynamoDB:
		client, err := dynamoClient(ctx, cfg)
		if err != nil {
			return err
		}
		if err := dynamostore.CreateTable(ctx, client, cfg.Table); err != nil {
			return err
		}
	default:
		slog.InfoContext(ctx, "store needs no initialization", slog.String("driver", cfg.Driver))
		return nil
	}
	slog.InfoContext(ctx, "store initialized", slog.String("driver", cfg.Driver))
	return nil
}

func dynamoClient(ctx context.Context, cfg config.StoreConfig) (*dynamodb.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("couldn't load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}
