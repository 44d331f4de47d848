// Package cssx implements the stylesheet extensions understood by assetflow.
//
// Three passes run in order:
//
//   - variables: "$name: value;" definitions and "$name" or "$(name)" references
//   - layout: lost-column, lost-center and lost-utility grid properties
//   - shorthand: "position: absolute t r b l", "clear: fix", "rgba(#hex, a)" and
//     named easing curves
//
// The output is plain CSS ready for prefixing and minification.
package cssx
