// Package config loads runtime configuration of the POS device.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. POS_* environment variables, seeded from an optional .env file.
//  3. Optional JSON file selected via flags: -c or -config.
//  4. Command-line flags, which override earlier values.
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "30m" or
// integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "database_path": "pos.db",
//	  "remote_backend": "grpc",
//	  "sync_interval": "30m",
//	  "call_timeout": "15s",
//	  "deletion_scan": "interval",
//	  "deletion_scan_interval": "6h",
//	  "upload_concurrency": 4,
//	  "dynamo": {"region": "us-east-1"}
//	}
package config
