// Package bridge resolves the local user behind a bearer token issued by an
// external identity source.
//
// Providers:
//   - A Provider verifies a token and returns a normalized Payload. The
//     firebase provider verifies RS256 ID tokens against the published key
//     set; the remote_api provider asks an upstream user endpoint. Build one
//     through provider.Selector so a process holds a single instance.
//
// Guard:
//   - Guard extracts the token (Authorization header, then the configured
//     input field, then the configured cookie), reads the account/app context
//     headers, authenticates through the provider and mirrors the identity into
//     a local User with the Synchronizer. Successful payloads are cached under
//     a fingerprint of provider prefix, token and context headers. Failures are
//     never cached.
//
// Accessor:
//   - Accessor is a read only view over the Resolution stored in the request
//     context. Permission and role checks are scoped to the account/app of the
//     request and deny when either is missing.
//
// Errors:
//   - Failures are go-errors values. Authentication failures share the
//     authentication category and map to 401, authorization failures to 403
//     and store failures to 500. See StatusCode.
package bridge
