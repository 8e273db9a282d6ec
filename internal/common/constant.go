// Package common contains shared constants and sentinel errors used across
// the POS device and the remote catalog server.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the shop
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// TimestampLayout is the textual layout of sale timestamps in every store.
// Sale identity is (shop, timestamp) so the layout must round-trip exactly.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"
