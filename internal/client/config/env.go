package config

import "github.com/dmitrijs2005/possync/internal/envx"

// parseEnv overlays Config with POS_* variables. A .env file in the working
// directory is loaded first without overriding the real environment.
func parseEnv(cfg *Config) {
	if err := envx.LoadFiles(".env"); err != nil {
		panic(err)
	}

	envx.String("POS_SERVER_ADDR", &cfg.ServerEndpointAddr)
	envx.String("POS_DB_PATH", &cfg.DatabasePath)
	envx.String("POS_REMOTE_BACKEND", &cfg.RemoteBackend)
	envx.Duration("POS_SYNC_INTERVAL", &cfg.SyncInterval)
	envx.Duration("POS_CALL_TIMEOUT", &cfg.CallTimeout)
	envx.Duration("POS_ONLINE_CHECK_INTERVAL", &cfg.OnlineCheckInterval)
	envx.String("POS_DELETION_SCAN", &cfg.DeletionScan)
	envx.Duration("POS_DELETION_SCAN_INTERVAL", &cfg.DeletionScanInterval)
	envx.Duration("POS_CURSOR_SKEW", &cfg.CursorSkew)
	envx.Int("POS_UPLOAD_CONCURRENCY", &cfg.UploadConcurrency)
	envx.Bool("POS_SCOPE_TO_SHOP", &cfg.ScopeToShop)
	envx.String("POS_METRICS_ADDR", &cfg.MetricsAddr)

	envx.String("POS_DYNAMO_REGION", &cfg.Dynamo.Region)
	envx.String("POS_DYNAMO_ENDPOINT", &cfg.Dynamo.Endpoint)
	envx.String("POS_DYNAMO_ACCESS_KEY_ID", &cfg.Dynamo.AccessKeyID)
	envx.String("POS_DYNAMO_SECRET_ACCESS_KEY", &cfg.Dynamo.SecretAccessKey)
	envx.String("POS_DYNAMO_PRODUCTS_TABLE", &cfg.Dynamo.ProductsTable)
	envx.String("POS_DYNAMO_SALES_TABLE", &cfg.Dynamo.SalesTable)
	envx.String("POS_DYNAMO_SHOPS_TABLE", &cfg.Dynamo.ShopsTable)
}
