/*
Package persist provides durable, bbolt-backed implementations of the
two storage seams the rest of this module treats as pluggable: a
commit log for the TxData records that datastore's Commit returns
(Commit itself does not write to it; the caller appends each record),
and the blob store that backs large var-len columns.

Both are built on a bucket-per-concern layout, the same shape the
teacher's node/service/container store used, adapted here from
JSON-marshal-by-id to two append-only and content-addressed schemes:

  - CommitLog keeps one bucket, keyed by big-endian tx offset, holding
    a small custom envelope around BSATN-encoded rows (the table
    schemas needed to decode them live in the catalog, not the log
    itself, so the envelope carries table ids and raw row bytes, not
    self-describing types).
  - BlobStore keeps two buckets: blob bytes keyed by content hash, and
    refcounts keyed the same way, so Decr can free an entry without a
    separate GC pass.

Neither type is required: pkg/datastore and pkg/blob both work equally
well against their in-memory counterparts, which is what tests and the
default embedded configuration use. Persist is opt-in durability for a
long-lived process.
*/
package persist
