// Package services holds the device's application services: the POS editor
// (products, sales and lookups against the local cache) and shop login.
// Both work offline; only Variants, Login and Ping reach the remote store.
package services
