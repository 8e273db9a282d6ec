// Package store is the device's Local Cache Store: an embedded SQLite
// database holding the replicated catalog, the outbound sale queue and a
// small key/value config (current shop, sync cursor, cached shop list).
//
// Every read-merge-write of a product row runs inside a transaction while
// holding that row's lock, so an edit made from the interactive thread is
// never lost to a download applied concurrently by the sync engine.
// Only the sync engine calls MarkProductSynced and MarkSaleSynced.
package store
