// Package metadata stores device-level settings in the config table: the
// current shop, the sync cursor, the cached shop list and auth token.
// Values are opaque bytes; callers decide the encoding.
package metadata
