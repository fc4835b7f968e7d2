// Package preflight checks that travelrag can index and serve a project:
// the corpus directory has matching files, the data directory is writable
// with some free space, and the tokenizer, embedding service and scoring
// service are usable.
//
// Required checks that fail make the project unusable. Everything else is a
// warning because the engine degrades (rune tokenizer, lexical-only search,
// passthrough ranking) instead of failing.
//
//	checker := preflight.New(preflight.WithOutput(os.Stdout))
//	results := checker.RunAll(ctx, cfg, embedder)
//	if checker.HasCriticalFailures(results) {
//	    // refuse to index
//	}
package preflight
