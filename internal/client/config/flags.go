package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/possync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the backend server
//	-f string   path of the local SQLite database
//	-b string   remote backend: grpc or dynamodb
//	-i int      background sync interval in minutes (0 disables it)
//	-t int      remote call timeout in seconds
//	-d string   deletion scan mode: never, always or interval
//	-s int      deletion scan interval in minutes
//	-u int      number of concurrent uploads
//	-m string   address of the metrics endpoint ("" disables it)
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-f", "-b", "-i", "-t", "-d", "-s", "-u", "-m"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.DatabasePath, "f", cfg.DatabasePath, "local database file")
	fs.StringVar(&cfg.RemoteBackend, "b", cfg.RemoteBackend, "remote backend (grpc, dynamodb)")
	syncInterval := fs.Int("i", int(cfg.SyncInterval.Minutes()), "sync interval (in minutes)")
	callTimeout := fs.Int("t", int(cfg.CallTimeout.Seconds()), "remote call timeout (in seconds)")
	fs.StringVar(&cfg.DeletionScan, "d", cfg.DeletionScan, "deletion scan (never, always, interval)")
	scanInterval := fs.Int("s", int(cfg.DeletionScanInterval.Minutes()), "deletion scan interval (in minutes)")
	fs.IntVar(&cfg.UploadConcurrency, "u", cfg.UploadConcurrency, "concurrent uploads")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "metrics endpoint address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SyncInterval = time.Duration(*syncInterval) * time.Minute
	cfg.CallTimeout = time.Duration(*callTimeout) * time.Second
	cfg.DeletionScanInterval = time.Duration(*scanInterval) * time.Minute
}
