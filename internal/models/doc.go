// Package models defines the catalog and ledger records shared by the POS
// device, the remote stores and the wire protocol.
//
// A Product is one shared catalog record; each shop that lists it owns an
// independent entry in Prices. A Sale is identified by (Shop, Timestamp).
package models
