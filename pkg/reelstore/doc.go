// Package reelstore provides a reusable library for managing video content
// records, their tag relationships, upload session lifecycle and view
// analytics on top of pluggable repository and blob storage backends.
//
// It exposes a single Service interface that orchestrates direct creation,
// the open/finalize/cancel upload flow, visibility-scoped listing and
// full-text search with page-based pagination, tag maintenance with
// transactionally consistent usage counts, and best-effort view recording.
// Repository implementations (memory, Postgres) and blob stores (memory, S3)
// are provided under subpackages.
//
// # Consistency model
//
// The relational store is the single source of truth. Any write that touches
// more than one table (a video and its tag associations, a finalized session
// and the video it produces) happens in one transaction: either all effects
// are visible or none. Tag usage counts are maintained by the same
// transaction as the association change they reflect, never by a separate
// statement.
package reelstore
