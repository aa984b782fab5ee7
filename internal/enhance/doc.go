// Package enhance runs the ordered generative rewrite chain that turns a CMS
// document into SEO-ready content plus meta title and description.
//
// The chain is a fixed list of Stage descriptors (Draft-Augmentation,
// Voice-and-FAQ-Enrichment, SEO-Finalization) folded left to right over the
// running content. Each stage renders a text/template prompt, calls the
// injected Generator and decodes the reply according to its OutputKind:
// RawHTML replies become the next content, the final StructuredJSON reply is
// fence-stripped, parsed and validated against a JSON schema.
//
// The engine has no side effects of its own. Callers receive every stage
// output through an Observer before the next stage starts, which is where the
// workflow archives snapshots. The first failure aborts the chain with a
// *StageError naming the stage; length-truncated generations are always
// rejected.
package enhance
