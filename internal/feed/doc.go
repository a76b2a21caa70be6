// Package feed contains one source adapter per upstream hazard feed plus the
// shared fetch client.
//
// Each adapter pairs an HTTP fetch with a pure normalizer that maps the feed's
// native schema into []domain.HazardRecord. The normalizers are total: a
// well-formed payload never produces an error, rows with invalid coordinates
// are dropped (not nulled), and an empty payload yields an empty slice. All
// schema variability between upstreams is contained here; nothing outside this
// package sees a feed's native types.
//
// Failure contract: Fetch returns *FetchError for every failure mode:
// non-2xx status, timeout, transport error, open circuit breaker, or
// unparseable JSON. Adapters never panic on malformed payloads.
package feed
