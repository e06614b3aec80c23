// Package domain contains shared domain types used across entity sub-packages.
// Entity-specific types live in sub-packages (domain/todo). This root package
// holds the sentinel errors and the field-level validation error that every
// layer matches with errors.Is and errors.As.
package domain
