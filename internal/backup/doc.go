// Package backup implements the venue backup subsystem: capturing analytics
// tables into versioned bundles, running them through a
// serialize/compress/encrypt pipeline, storing them in a blob store,
// cataloging every run, and restoring them back into the datastore.
//
// All operations support an optional tenant scope keyed on the bar_id
// column, so a single venue can be backed up or restored without touching
// its neighbours.
package backup
