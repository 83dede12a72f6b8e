// Package docservice is both ends of the document service: the in-memory
// [Index] and [Service] the server runs on, and the [Client] and [Local]
// fetchers the expansion controller pulls nodes through.
//
// The service answers three questions: the shallow tree of a document
// (root plus N levels), one node, and one node's immediate children. Full
// content travels only with the node being expanded and with the root of
// an initial load.
package docservice
