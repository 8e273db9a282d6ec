// Package services implements the shared catalog, ledger and shop directory
// on PostgreSQL. Backend combines them into a remote.Admin so the gRPC and
// HTTP layers can serve any remote store the same way.
package services
