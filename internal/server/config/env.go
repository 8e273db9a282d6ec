package config

import (
	"github.com/dmitrijs2005/possync/internal/envx"
	"github.com/dmitrijs2005/possync/internal/flagx"
)

// parseEnv overlays Config with POSSYNC_* variables, after loading a .env
// file from the working directory without overriding the real environment.
func parseEnv(cfg *Config) {
	if err := envx.LoadFiles(".env"); err != nil {
		panic(err)
	}

	envx.String("POSSYNC_GRPC_ADDR", &cfg.EndpointAddrGRPC)
	envx.String("POSSYNC_HTTP_ADDR", &cfg.EndpointAddrHTTP)
	envx.String("POSSYNC_BACKEND", &cfg.Backend)
	envx.String("POSSYNC_DATABASE_DSN", &cfg.DatabaseDSN)
	envx.String("POSSYNC_SECRET_KEY", &cfg.SecretKey)
	envx.Duration("POSSYNC_TOKEN_VALIDITY", &cfg.AccessTokenValidityDuration)
	envx.String("POSSYNC_ADMIN_TOKEN", &cfg.AdminToken)
	envx.String("POSSYNC_REDIS_ADDR", &cfg.RedisAddr)
	envx.String("POSSYNC_REDIS_PASSWORD", &cfg.RedisPassword)
	envx.Duration("POSSYNC_BARCODE_CACHE_TTL", &cfg.BarcodeCacheTTL)
	envx.String("POSSYNC_KAFKA_TOPIC", &cfg.KafkaTopic)
	envx.String("POSSYNC_JAEGER_ENDPOINT", &cfg.JaegerEndpoint)
	envx.String("POSSYNC_LOG_FORMAT", &cfg.LogFormat)
	envx.String("POSSYNC_ENV", &cfg.Environment)

	var brokers string
	envx.String("POSSYNC_KAFKA_BROKERS", &brokers)
	if brokers != "" {
		cfg.KafkaBrokers = flagx.SplitList(brokers)
	}

	envx.String("POSSYNC_DYNAMO_REGION", &cfg.Dynamo.Region)
	envx.String("POSSYNC_DYNAMO_ENDPOINT", &cfg.Dynamo.Endpoint)
	envx.String("POSSYNC_DYNAMO_ACCESS_KEY_ID", &cfg.Dynamo.AccessKeyID)
	envx.String("POSSYNC_DYNAMO_SECRET_ACCESS_KEY", &cfg.Dynamo.SecretAccessKey)
	envx.String("POSSYNC_DYNAMO_PRODUCTS_TABLE", &cfg.Dynamo.ProductsTable)
	envx.String("POSSYNC_DYNAMO_SALES_TABLE", &cfg.Dynamo.SalesTable)
	envx.String("POSSYNC_DYNAMO_SHOPS_TABLE", &cfg.Dynamo.ShopsTable)
	envx.Bool("POSSYNC_DYNAMO_CREATE_TABLES", &cfg.Dynamo.CreateTables)
}
