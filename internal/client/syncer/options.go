package syncer

import (
	"fmt"
	"time"
)

// DeletionScan selects when a delta run enumerates remote ids to detect
// deletions. Full runs always enumerate.
type DeletionScan string

const (
	ScanNever    DeletionScan = "never"
	ScanAlways   DeletionScan = "always"
	ScanInterval DeletionScan = "interval"
)

// ParseDeletionScan validates a knob value from config.
func ParseDeletionScan(s string) (DeletionScan, error) {
	switch v := DeletionScan(s); v {
	case ScanNever, ScanAlways, ScanInterval:
		return v, nil
	}
	return "", fmt.Errorf("unknown deletion scan mode %q", s)
}

type Options struct {
	// CallTimeout bounds every remote call.
	CallTimeout  time.Duration
	DeletionScan DeletionScan
	// DeletionScanInterval is the minimum time between scans with ScanInterval.
	DeletionScanInterval time.Duration
	// CursorSkew is subtracted from the stored cursor to absorb clock
	// differences between the device and the remote store.
	CursorSkew time.Duration
	// UploadConcurrency caps parallel remote writes in the upload phases.
	UploadConcurrency int
	// UploadRate caps remote writes per second; zero means unlimited.
	UploadRate float64
	// ScopeToShop limits downloads to products priced for the active shop.
	// By default the whole catalog is mirrored so unpriced products can be
	// listed from the device.
	ScopeToShop bool
	// EventBuffer is the capacity of the Events channel.
	EventBuffer int
}

func DefaultOptions() Options {
	return Options{
		CallTimeout:          15 * time.Second,
		DeletionScan:         ScanInterval,
		DeletionScanInterval: 6 * time.Hour,
		UploadConcurrency:    4,
		EventBuffer:          64,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.CallTimeout <= 0 {
		o.CallTimeout = d.CallTimeout
	}
	if o.DeletionScan == "" {
		o.DeletionScan = d.DeletionScan
	}
	if o.DeletionScanInterval <= 0 {
		o.DeletionScanInterval = d.DeletionScanInterval
	}
	if o.UploadConcurrency <= 0 {
		o.UploadConcurrency = d.UploadConcurrency
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = d.EventBuffer
	}
	return o
}
