// Package source feeds configured parameters of a transaction from external
// locations: YAML documents on any afs supported storage and scy secrets.
//
// Only configured parameters can be fed; pushing a name bound as requisite or
// environment is rejected by the transaction.
package source
