// Package simpleposts provides a reusable library for blog-style posts whose
// cover image and content blocks reference uploaded media files.
//
// Media files are uploaded first and recorded as unclaimed MediaResources in
// the "posts" namespace. Creating or updating a post claims the referenced
// files for the post and removes the files the post no longer references,
// so the set of stored files always mirrors the set of referenced files.
// Deleting a post removes every file it claims.
//
// Implementations of repositories (memory, Postgres, MongoDB) and blob stores
// (memory, filesystem, S3) are provided under subpackages.
package simpleposts
