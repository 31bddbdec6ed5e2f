// Package varlen defines the 64-byte var-len granule, the VarLenRef
// inline placeholder that points at a granule chain from within a
// page's fixed region, and the large-blob threshold/sentinel that
// redirects oversized objects into the blob store.
package varlen
