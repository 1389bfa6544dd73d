// Package core contains the canonical Florin client contracts, entities, and
// the authenticated request pipeline. Lower-level adapters must depend on this
// package; core must not depend on transport-specific or storage-specific
// adapters.
package core
