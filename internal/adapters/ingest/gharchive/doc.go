// Package gharchive acquires and reads GH Archive hourly gzip dumps
//
// Design choices:
//   - Stream with bufio.Scanner but with a 32MB cap to reliably handle huge payloads.
//   - Syntax errors are fatal to the file; type mismatches leave fields zero so the
//     extract stage can skip the record.
//   - Keep payload as raw JSON until extract-stage to avoid a giant union type
//   - Fetchers are interchangeable: direct HTTP, HTTP behind a disk cache, or an S3 mirror
package gharchive
