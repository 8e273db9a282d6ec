package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/possync/internal/flagx"
	"github.com/dmitrijs2005/possync/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. Durations use timex.Duration, so both "10m" and integer nanoseconds
// are accepted. Only keys present in the file override current values.
type JsonConfig struct {
	EndpointAddrGRPC            *string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP            *string         `json:"endpoint_addr_http"`
	Backend                     *string         `json:"backend"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	SecretKey                   *string         `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	AdminToken                  *string         `json:"admin_token"`
	RedisAddr                   *string         `json:"redis_addr"`
	RedisPassword               *string         `json:"redis_password"`
	BarcodeCacheTTL             *timex.Duration `json:"barcode_cache_ttl"`
	KafkaBrokers                []string        `json:"kafka_brokers"`
	KafkaTopic                  *string         `json:"kafka_topic"`
	JaegerEndpoint              *string         `json:"jaeger_endpoint"`
	LogFormat                   *string         `json:"log_format"`
	Environment                 *string         `json:"environment"`
	Dynamo                      *struct {
		Region        *string `json:"region"`
		Endpoint      *string `json:"endpoint"`
		ProductsTable *string `json:"products_table"`
		SalesTable    *string `json:"sales_table"`
		ShopsTable    *string `json:"shops_table"`
		CreateTables  *bool   `json:"create_tables"`
	} `json:"dynamo"`
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config flag. Without either flag nothing is loaded. If the file cannot be
// read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setIf(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setIf(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setIf(&config.Backend, c.Backend)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setIf(&config.AdminToken, c.AdminToken)
	setIf(&config.RedisAddr, c.RedisAddr)
	setIf(&config.RedisPassword, c.RedisPassword)
	setDuration(&config.BarcodeCacheTTL, c.BarcodeCacheTTL)
	if c.KafkaBrokers != nil {
		config.KafkaBrokers = c.KafkaBrokers
	}
	setIf(&config.KafkaTopic, c.KafkaTopic)
	setIf(&config.JaegerEndpoint, c.JaegerEndpoint)
	setIf(&config.LogFormat, c.LogFormat)
	setIf(&config.Environment, c.Environment)
	if d := c.Dynamo; d != nil {
		setIf(&config.Dynamo.Region, d.Region)
		setIf(&config.Dynamo.Endpoint, d.Endpoint)
		setIf(&config.Dynamo.ProductsTable, d.ProductsTable)
		setIf(&config.Dynamo.SalesTable, d.SalesTable)
		setIf(&config.Dynamo.ShopsTable, d.ShopsTable)
		setIf(&config.Dynamo.CreateTables, d.CreateTables)
	}
}
