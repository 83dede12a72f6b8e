// Package mindmap provides the serialization types for document mind maps.
//
// This package defines the canonical wire format shared by the document
// service, the storage backends and the client-side tree engine. Field names
// follow the document service's JSON API (parent_id, children_ids, node_type,
// has_children, ...) so that payloads round-trip without translation.
//
// # Core Types
//
//   - [Node]: one unit of document structure
//   - [Tree]: a (possibly shallow) set of nodes plus the root id, as returned
//     by the initial load
//   - [Expansion]: a node and its immediate children, as returned by an expand
//   - [Edge]: a parent→child relation between two rendered nodes
//   - [Outline]: a nested, id-less authoring format converted with [FromOutline]
//
// # Kinds
//
// Node kinds form a total order of structural depth used only for display:
//
//	mindmap.KindRoot        // "root"
//	mindmap.KindSection     // "section"
//	mindmap.KindSubsection  // "subsection"
//	mindmap.KindTopic       // "topic"
//	mindmap.KindDetail      // "detail"
//
// # Tree Serialization
//
//	{
//	  "document_id": "7c1e...",
//	  "root_id": "a1",
//	  "nodes": [
//	    {"id": "a1", "title": "Constitution", "node_type": "root",
//	     "children_ids": ["b1", "b2"], "has_children": true}
//	  ]
//	}
//
// Use [ReadTree]/[WriteTree] for streams and [ReadTreeFile]/[WriteTreeFile]
// for files.
package mindmap
