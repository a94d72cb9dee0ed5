// Package querycodec turns caller-supplied request parameters into the canonical wire form
// expected by the REST API.
//
// All functions are pure: they never perform I/O and never mutate their inputs.
//
// # Features
//
//   - Pagination clamping that lets an explicit default pass through untouched
//   - Id-list joining with per-resource ceilings (LimitExceededError)
//   - Canonical form-urlencoded query strings with nil values dropped
//   - JSON request bodies with nil fields dropped
//
// # Quick Start
//
//	limit := querycodec.LimitBounds.Apply(75) // 50
//	ids, err := querycodec.JoinIDs(albumIDs, ",", querycodec.MaxIDs20)
//	if err != nil {
//	    return err // errors.Is(err, querycodec.ErrLimitExceeded)
//	}
//	query, ok := querycodec.BuildQuery(querycodec.Params{"ids": ids, "market": "US"})
package querycodec
