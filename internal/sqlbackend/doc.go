// Package sqlbackend is an external feed store backend on SQLite.
//
// It implements feedstore.Backend, so a tag built with
// feedstore.DelegatedTag(sqlbackend.New(logger), "name") bypasses the local store
// entirely. Items are appended to a single feed_items table with a random
// UUID primary key and are returned ordered by creation time. The backend
// applies no capacity or expiry rules of its own.
//
// # Usage
//
//	ext := sqlbackend.New(logger)
//	err := store.Open(ctx, feedstore.Options{Backend: ext, File: "ext.db"})
//	err = store.Insert(ctx, feedstore.DelegatedTag(ext, "releases"), title, link, desc)
package sqlbackend
