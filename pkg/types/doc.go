// Package types defines the identifiers and value types shared across
// the storage engine: table/column/index ids, row pointers, blob
// hashes, timestamps and schedule-at values, and column lists used to
// key multi-column indexes.
//
// Everything here is a plain value type with no behavior beyond small
// conversions; the packages that give these types meaning are sats
// (algebraic values), page (BFLATN layout), table, catalog, datastore
// and scheduler.
package types
