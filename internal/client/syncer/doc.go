// Package syncer is the sync engine of a POS device. A run uploads pending
// sales and modified products to the remote store, then downloads the catalog
// (in full or delta mode), applies it to the local cache, purges products
// deleted remotely and finally advances the cursor:
//
//	IDLE → UPLOAD_SALES → UPLOAD_PRODUCTS → FETCH → APPLY → RECONCILE → CURSOR → IDLE
//
// Failures of single items are collected into the Result and never stop a
// run. An unreachable remote store stops the run without touching the
// cursor. Runs are single-flight: a call made while another run is active
// returns at once with ErrSyncInProgress.
//
// Engine.Sync is the only entry point. Scheduler funnels both its timer and
// manual triggers through it.
package syncer
