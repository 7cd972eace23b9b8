// Package repository persists local identity records with bun.
package repository
