// Package products persists the device's copy of the catalog.
//
// Each row is a flattened product: shared metadata, the full per-shop price
// map (prices_map, JSON), the resolved price for the active shop (price), the
// local dirty flag (sync_status), the remote last_updated in Unix
// microseconds and a local revision counter bumped on every write.
//
// The repository is a thin SQL layer over dbx.DBTX; read-merge-write
// sequences and their locking live in internal/client/store.
package products
