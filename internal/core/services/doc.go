// Package services contains the core application logic: the embedding
// orchestrator, the ingest pipeline, similarity search and the
// maintenance scheduler. Services depend only on port interfaces.
package services
