// Package aggregator fans one fetch cycle out to every registered adapter and
// collects the settled records in registry order.
//
// Each adapter runs in its own goroutine, writes only its own result slot and
// is wrapped in a recover, so one misbehaving provider never affects the
// others. A cycle takes as long as its slowest adapter, bounded by
// Options.Timeout when set.
package aggregator
