// Package inspect renders, compares, addresses and stores snapshots of a
// supervision tree.
package inspect
