package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Index and cache backends return
// these (optionally wrapped) so the matcher and service layers can translate
// them into domain errors or degrade the search.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: reference entity does not exist in the index
// - ErrUnavailable: an index pass cannot be served (backend down, or a
//   vector query without an embedding)
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
)
