// Package remoteapi authenticates bearer tokens by asking a remote user
// endpoint who the token belongs to.
//
// The endpoint receives the token as "Authorization: Bearer" together with
// the forwarded account and app headers. A 2xx JSON object, optionally
// wrapped in a "data" envelope, is mapped with bridge.PayloadFromMap.
package remoteapi
