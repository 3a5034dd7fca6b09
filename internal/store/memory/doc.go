// Package memory implements the domain store interfaces with mutex-guarded
// in-process maps. It backs the test suite and the db-less "memory" storage
// mode; semantics (atomicity, sentinel errors, conservation of per-asset
// totals) match the postgres implementations exactly.
package memory
