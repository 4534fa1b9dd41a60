// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

/*
Package api provides the HTTP surface of the drives service using the Chi
router.

Routes:

	GET     /api/drives   list drives or fetch one by ?id=, cached with ETag
	POST    /api/drives   create a drive (JSON or multipart with a logo file)
	PUT     /api/drives   partial update, body must carry the id
	DELETE  /api/drives   delete by ?id=
	PATCH   /api/drives   bulk operations selected by {"operation": ...}
	OPTIONS /api/drives   CORS preflight
	GET     /health       liveness
	GET     /health/ready backend readiness
	GET     /metrics      Prometheus exposition

Global middleware, outermost first:

	RequestID -> AccessLog -> Recoverer -> StripSlashes -> SecurityHeaders ->
	CORS -> Prometheus

The /api/drives group adds Performance -> RateLimit -> Compression, and PATCH
adds a stricter per-client httprate limit. OPTIONS requests are never
rate limited.

Every successful write invalidates the whole response cache before the
response is written and publishes a change event on the event bus.

Errors use a single envelope:

	{"error": "message", "code": "VALIDATION_ERROR", "details": {...}, "request_id": "..."}

The error field is always present so clients written against the plain
{"error": "..."} shape keep working.
*/
package api
