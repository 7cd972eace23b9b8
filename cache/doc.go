// Package cache provides bridge.Cache stores: an in process memory store for
// single instance deployments and a Redis store shared across instances.
package cache
