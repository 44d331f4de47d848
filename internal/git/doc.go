// Package git commits the output tree into the git repository reserved inside it.
//
// The output directory keeps its own .git (a deploy branch checkout, typically). Cleaning
// never removes it, and Publish stages every change since the last commit:
//   - new and modified files are added
//   - files removed by a rebuild are deleted from the index
//   - a tree without changes produces no commit
//
// Pushing is left to the user.
package git
