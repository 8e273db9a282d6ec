package config

import (
	"time"

	"github.com/dmitrijs2005/possync/internal/client/syncer"
)

// DynamoConfig selects the DynamoDB tables used when RemoteBackend is
// "dynamodb". An empty Endpoint uses the regional AWS endpoint; without an
// access key the default AWS credential chain is used.
type DynamoConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	ProductsTable   string
	SalesTable      string
	ShopsTable      string
}

// Config holds runtime settings of a POS device.
//
// SyncInterval is the period of background syncs; zero disables the
// scheduler and leaves only manual syncs. ScopeToShop limits downloads to
// products priced for the current shop instead of mirroring the catalog.
type Config struct {
	ServerEndpointAddr   string
	DatabasePath         string
	RemoteBackend        string
	SyncInterval         time.Duration
	CallTimeout          time.Duration
	OnlineCheckInterval  time.Duration
	DeletionScan         string
	DeletionScanInterval time.Duration
	CursorSkew           time.Duration
	UploadConcurrency    int
	ScopeToShop          bool
	MetricsAddr          string
	Dynamo               DynamoConfig
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.DatabasePath = "pos.db"
	c.RemoteBackend = "grpc"
	c.SyncInterval = 30 * time.Minute
	c.CallTimeout = 15 * time.Second
	c.OnlineCheckInterval = 30 * time.Second
	c.DeletionScan = string(syncer.ScanInterval)
	c.DeletionScanInterval = 6 * time.Hour
	c.CursorSkew = 0
	c.UploadConcurrency = 4
	c.MetricsAddr = ""
	c.Dynamo = DynamoConfig{
		Region:        "us-east-1",
		ProductsTable: "SalesApp_Products",
		SalesTable:    "SalesApp_Sales",
		ShopsTable:    "SalesApp_PublicShops",
	}
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, JSON (if present) and command-line flags (if present).
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// SyncerOptions converts the sync knobs into engine options. It panics on an
// unknown deletion scan mode, like the other parsers.
func (c *Config) SyncerOptions() syncer.Options {
	scan, err := syncer.ParseDeletionScan(c.DeletionScan)
	if err != nil {
		panic(err)
	}
	opts := syncer.DefaultOptions()
	opts.CallTimeout = c.CallTimeout
	opts.DeletionScan = scan
	opts.DeletionScanInterval = c.DeletionScanInterval
	opts.CursorSkew = c.CursorSkew
	opts.UploadConcurrency = c.UploadConcurrency
	opts.ScopeToShop = c.ScopeToShop
	return opts
}
