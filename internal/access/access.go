// Package access maps authenticated identities to the vector index
// collection they are allowed to query.
package access

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthorized is returned for identities with no configured collection.
// Unknown identities are denied; there is no default or shared collection.
var ErrUnauthorized = errors.New("identity has no authorized collection")

// Resolver resolves an identity to its collection name. Implementations
// must fail closed: an unknown identity is an error, never a default grant.
type Resolver interface {
	Resolve(email string) (string, error)
}

// StaticResolver resolves identities from a fixed table, typically loaded
// from configuration.
type StaticResolver struct {
	collections map[string]string
}

// NewStaticResolver creates a resolver backed by the given email ->
// collection table. Emails are matched case-insensitively.
func NewStaticResolver(collections map[string]string) *StaticResolver {
	m := make(map[string]string, len(collections))
	for email, collection := range collections {
		m[strings.ToLower(email)] = collection
	}
	return &StaticResolver{collections: m}
}

// Resolve returns the collection name for email.
func (r *StaticResolver) Resolve(email string) (string, error) {
	collection, ok := r.collections[strings.ToLower(email)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnauthorized, email)
	}
	return collection, nil
}
