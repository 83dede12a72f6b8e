// Package pkg holds the libraries behind docmap, a progressive-disclosure
// viewer for hierarchical document mind maps.
//
// # Overview
//
// A document is imported once as a full tree. Clients never receive it
// whole: they load the root and its first levels, then fetch children on
// demand as nodes are expanded. The pkg directory is split the same way:
//
//	[mindmap]      wire types: Node, Tree, Expansion
//	[docservice]   server index + HTTP client + in-process fetcher
//	[storage]      persisted mind maps and audit logs (file, memory, redis, mongo)
//	[core/tree]    client-side node store with expansion and loading flags
//	[core/expand]  the asynchronous expand/collapse protocol
//	[core/layout]  tree layout of the visible nodes
//	[core/render]  scene projection, DOT/SVG/PNG/PDF export via nodelink
//	[pipeline]     scene to artifact rendering with an artifact [cache]
//
// # Data flow
//
//	import JSON ─▶ docservice.Service ─▶ storage.Store
//	                     │
//	          Client / Local (expand.Fetcher)
//	                     │
//	     expand.Controller ─▶ tree.Store ─▶ tree.Resolve ─▶ layout ─▶ render
//
// # Quick start
//
// Serve a document from memory and expand everything below its root:
//
//	svc := docservice.NewService(memory.NewStore(), nil)
//	if _, err := svc.Import(ctx, docservice.ImportRequest{Tree: t}, raw); err != nil {
//	    return err
//	}
//	ctrl := expand.New(tree.NewStore(), docservice.NewLocal(svc.Index), nil)
//	if err := ctrl.Load(ctx, t.DocumentID); err != nil {
//	    return err
//	}
//	if _, err := ctrl.ExpandAll(ctx, -1); err != nil {
//	    return err
//	}
//
// Swap [docservice.Local] for a [docservice.Client] to do the same against
// a running `docmap serve`.
//
// # Errors
//
// Every package returns [errors.Error] values carrying a code, so callers
// branch with errors.Is(err, errors.ErrCodeDocumentNotFound) instead of
// matching strings.
package pkg
