// Package idgen wraps the UUID generator used for processor, transaction and
// message identities so that it can be stubbed in tests.
package idgen
