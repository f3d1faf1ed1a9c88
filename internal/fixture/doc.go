// Package fixture builds the documents seeded into the receipt datastores.
//
// Builders are pure: the same arguments always produce documents that are
// deep-equal and serialize to the same canonical bytes. Nothing here touches
// a datastore; see package datastore for persistence.
//
// Validate checks a built or decoded document against the embedded CUE
// definitions in schema.cue.
package fixture
