// Package glossary connects the retrieval engine to the glossary
// collaborator, the external service that owns concept extraction. The
// engine never derives concepts itself; it only asks which recognized
// labels appear in a given text, and it asks the same question of indexed
// passages and of the live query window so active-concept hits compare
// like with like.
//
// # Implementations
//
// HTTPGlossary talks to a collaborator endpoint. Static matches against a
// fixed term list in-process with case-insensitive whole-term matching,
// which is useful when no endpoint is configured and in tests. Noop
// recognizes nothing, disabling concept boosting entirely.
//
// # Label normalization
//
// All labels pass through NormalizeLabel before use: backticks and
// punctuation stripped, whitespace collapsed, lower-cased. The store
// persists normalized labels, so matching at query time is a plain string
// set intersection.
package glossary
