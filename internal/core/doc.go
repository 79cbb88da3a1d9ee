// Package core provides the session, upload and transformation logic behind
// the data sweeper.
//
// The package is independent of HTTP. Web handlers translate requests into
// calls on [Service] and render what comes back; tests drive it directly.
//
// # Sessions
//
// Each browser gets a session holding the files it uploaded. Sessions live
// in memory and expire after [Config.SessionTTL] without use. Nothing is
// written to disk.
//
// # Uploads
//
// [Service.Upload] parses a batch of CSV or XLSX files one at a time. A bad
// file is reported on its own [FileResult] and never stops the rest of the
// batch. Parsing is bounded by an [UploadLimiter] shared by all sessions.
//
// # Pipelines
//
// A [Pipeline] is the complete set of cleaning and transformation flags
// for a file. It is re-applied to the parsed upload on every request by
// [Run], always in this order:
//
//  1. Remove duplicate rows
//  2. Fill missing numeric cells with the column mean
//  3. Keep the selected columns
//  4. Remove the selected columns
//  5. Search rows for a term
//  6. Min-max normalize numeric columns
//  7. Keep rows at or above a threshold
//
// Steps report what they did as [Notice] values for the page to show.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code for support reference:
//
//   - FILE001-FILE006: upload and parse errors
//   - COL001-COL006: column selection and column type errors
//   - INPUT001-INPUT004: bad form values and request bodies
//   - CHART001: too little data to draw
//   - SES001-SES002: expired sessions and removed files
//   - UPL001-UPL003: busy, cancelled or timed out uploads
package core
