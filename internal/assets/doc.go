// Package assets fetches the design-assets repository and turns it into one
// zip per extension tag.
//
// The work happens in three steps, each its own pipeline task:
//
//   - Cloner checks the repository out into a temporary directory.
//   - Classifier copies the files each tag's patterns select into
//     dist/assets-<tag>-<bundle>. Tags run concurrently and never share a
//     destination.
//   - Packager zips every tag directory into dist/assets-<tag>-<bundle>.zip
//     and returns once every archive has finished.
package assets
