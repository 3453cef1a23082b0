// Package jsnext is a source-to-source macro expander for JavaScript.
//
// A file opts in by binding the jsnext library module and wrapping code in
// apply-sites:
//
//	import lib from '@luna-lang/jsnext';
//
//	const area = lib.apply(['ops'], (w, h) => w * h);
//
// Each apply-site names extension tags (a string or an array of strings)
// and a body. The body is handed to every mutator registered for those tags,
// then spliced into the program in place of the call, so the wrapper never
// reaches the output.
//
// # Pipeline
//
// [Preprocess] runs one file through four steps:
//
//  1. Parse the source into an arena tree (internal/parser, tree-sitter).
//  2. Resolve bindings: local names that import or require the library.
//  3. Locate apply-sites (binding.method(...)) in post-order and dispatch
//     each one: default tags, then the site's own tags, then splice.
//  4. Regenerate source (internal/printer), but only if a site was expanded.
//
// A file with no apply-sites comes back byte-for-byte unchanged. Any error
// aborts the whole file and returns no output.
//
// # Mutators
//
// A [Mutator] edits the body it receives in place using the surgery and
// factory methods of [ast.Tree]. Mutators are registered per tag in a
// [Registry]; package extensions has Go samples and internal/runtime runs
// mutators written as Risor scripts.
//
// # Files
//
// [Engine] expands files on disk, caching outputs in SQLite keyed by a hash
// of the input and everything that influences expansion.
package jsnext
