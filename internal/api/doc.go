// Package api defines the device ↔ server wire contract: the request and
// response messages, a JSON codec registered with gRPC and the
// possync.v1.SyncService descriptor with its client and server stubs.
//
// Messages are plain Go structs. Clients select the codec per call with
// grpc.CallContentSubtype(CodecName); NewSyncServiceClient does this for
// every method.
package api
