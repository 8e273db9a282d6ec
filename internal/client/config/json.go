package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/possync/internal/flagx"
	"github.com/dmitrijs2005/possync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations use
// timex.Duration so the file may say "30m" or an integer of nanoseconds.
// Only keys present in the file override the current values.
type JsonConfig struct {
	ServerEndpointAddr   *string         `json:"server_endpoint_addr"`
	DatabasePath         *string         `json:"database_path"`
	RemoteBackend        *string         `json:"remote_backend"`
	SyncInterval         *timex.Duration `json:"sync_interval"`
	CallTimeout          *timex.Duration `json:"call_timeout"`
	OnlineCheckInterval  *timex.Duration `json:"online_check_interval"`
	DeletionScan         *string         `json:"deletion_scan"`
	DeletionScanInterval *timex.Duration `json:"deletion_scan_interval"`
	CursorSkew           *timex.Duration `json:"cursor_skew"`
	UploadConcurrency    *int            `json:"upload_concurrency"`
	ScopeToShop          *bool           `json:"scope_to_shop"`
	MetricsAddr          *string         `json:"metrics_addr"`
	Dynamo               *struct {
		Region        *string `json:"region"`
		Endpoint      *string `json:"endpoint"`
		ProductsTable *string `json:"products_table"`
		SalesTable    *string `json:"sales_table"`
		ShopsTable    *string `json:"shops_table"`
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

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Without either flag nothing is loaded. It panics on read or
// unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setIf(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setIf(&cfg.DatabasePath, jc.DatabasePath)
	setIf(&cfg.RemoteBackend, jc.RemoteBackend)
	setIf(&cfg.DeletionScan, jc.DeletionScan)
	setIf(&cfg.UploadConcurrency, jc.UploadConcurrency)
	setIf(&cfg.ScopeToShop, jc.ScopeToShop)
	setIf(&cfg.MetricsAddr, jc.MetricsAddr)
	setDuration(&cfg.SyncInterval, jc.SyncInterval)
	setDuration(&cfg.CallTimeout, jc.CallTimeout)
	setDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	setDuration(&cfg.DeletionScanInterval, jc.DeletionScanInterval)
	setDuration(&cfg.CursorSkew, jc.CursorSkew)
	if d := jc.Dynamo; d != nil {
		setIf(&cfg.Dynamo.Region, d.Region)
		setIf(&cfg.Dynamo.Endpoint, d.Endpoint)
		setIf(&cfg.Dynamo.ProductsTable, d.ProductsTable)
		setIf(&cfg.Dynamo.SalesTable, d.SalesTable)
		setIf(&cfg.Dynamo.ShopsTable, d.ShopsTable)
	}
}
