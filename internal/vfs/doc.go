// Package vfs resolves request paths against a hybrid namespace that is part
// real filesystem and part zip archive contents.
//
// Resolution is pure string logic. A path such as
//
//	docs/bundle.docx/word/document.xml
//
// is split at the first non-terminal segment ending in ".zip" or ".docx"
// (case-insensitive) into the container "docs/bundle.docx" and the entry
// "word/document.xml". Any other path is a plain file and is kept exactly as
// received.
//
// Reading opens the container on every call, looks the entry up in the
// container's central directory, buffers the entry, and closes the container
// before returning. Nothing is cached between calls.
//
// Writes, directory creation and removal always act on the real filesystem;
// archives are read-only.
//
// Example Usage:
//
//	store := vfs.NewStore("/srv/docs", logger)
//	data, err := store.Read(vfs.Resolve("bundle.docx/word/document.xml"))
//	if vfs.IsNotFound(err) {
//		// 404
//	}
package vfs
