// Package firebase verifies Firebase ID tokens and maps their claims into a
// bridge payload.
//
// Tokens are bound to one project: the issuer must be the configured issuer
// prefix followed by the project id and the audience must be the project id.
package firebase
