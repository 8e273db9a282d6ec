// Package sales is the device's outbound sale queue. Rows are identified by
// (shop_name, timestamp) and move from pending to synced exactly once.
package sales
