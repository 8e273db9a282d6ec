// Package dynamo implements the remote catalog, ledger and shop directory on
// DynamoDB.
//
// Tables:
//
//	products  HASH product_id, GSI barcode-index(barcode)
//	sales     HASH shop_name, RANGE timestamp
//	shops     HASH name
//
// Prices are a map attribute keyed by the exact shop name, so names with
// spaces or underscores round-trip verbatim. last_updated is a Number of Unix
// microseconds. Every product write is a conditional put on the previously
// read last_updated and is retried when another writer got there first, so
// concurrent writers of different shops' prices never lose each other's
// updates.
package dynamo
