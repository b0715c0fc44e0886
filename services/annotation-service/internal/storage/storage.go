// Package storage holds the pgx repositories for the platform's business
// entities. Every method resolves the ambient transaction from the context,
// so writes issued inside a command share its transaction.
package storage

import "errors"

var ErrNotFound = errors.New("not found")
