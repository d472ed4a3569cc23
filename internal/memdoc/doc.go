// Package memdoc is an in-memory implementation of document.Document with change tracking.
//
// A Document stores its content as one string that still contains tracked-deleted text, plus a run-length list of marks saying which bytes are plain, tracked
// insertions, or tracked deletions. Ranges are anchor pairs registered with the Document and shifted on every committed edit: a start anchor sticks to the text
// after it, an end anchor to the text before it, and a collapsed range moves past text inserted at its position.
//
// Like a remote editor, a Document queues mutations and applies them on Sync. With WithStrictSync, reads fail while mutations are pending, which is useful for
// proving that callers sync before reading.
//
// Search and Text only see visible text (tracked deletions are skipped). Accepted, Original, and Render give views of the tracked state; AcceptAll and RejectAll
// resolve it. Save and Load persist a Document as JSON.
package memdoc
