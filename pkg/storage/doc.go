// Package storage persists document trees so the document service can be
// restarted without re-importing anything.
//
// Every document is keyed by its content hash: the first 16 lower-case hex
// characters of the SHA-256 of the imported file (see [ContentHash]). Hashes
// are validated before they are used in any path or key.
//
// Each stored document is a [PersistedMindMap] plus an append-only audit
// trail of [AuditEntry] records. Backends live in sub-packages:
//
//   - file:   documents/<hash>/mindmap.json + audit.log
//   - memory: process-local maps, for tests and ephemeral servers
//   - redis:  JSON values, an audit list and a sorted index per document
//   - mongo:  mindmaps and audit collections
//
// The storagetest package holds the behavior every backend must share.
package storage
