// Package cmis implements the read-path object cache in front of a CMIS
// repository. A Session owns five independent cache indices (objects,
// children, parents, properties, content-stream metadata) plus a memoized
// root folder, and is the only component that calls the Fetcher capability.
// Documents and folders are hydrated once from the generic property
// structure returned by the repository and are never mutated afterwards;
// navigation (children/parents) goes through the owning Session so results
// are cached per object id until explicitly invalidated.
package cmis
