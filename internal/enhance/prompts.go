package enhance

const draftSystemPrompt = "You are an expert content editor for a WordPress blog. You return HTML only, never commentary or code fences."

const draftPrompt = `Enhance the following WordPress post about "{{.Keyword}}" by adding a section about our free screening tool.

Key requirements:
1. Maintain the existing HTML structure and formatting.
2. Add a new section titled "Instant Antique & Art Valuation: Meet Our Free Screening Tool" after the introduction.
3. Include clear calls to action that link to {{.CTAURL}}.
4. Keep the tone and style consistent with the original content.
5. The new section must flow naturally with the existing content.

The section should highlight instant insights, free usage and no sign-up, mention photo upload with automatic attribute detection, the preliminary valuation range, and email capture for detailed reports. Keep calls to action compelling but not pushy.

Post title: {{.Title}}

Post content (HTML):
{{.Content}}

Return the complete enhanced post body as HTML.`

const voiceSystemPrompt = "You are an SEO copy editor. You return HTML only, never commentary or code fences."

const voicePrompt = `Revise the following HTML article about "{{.KeywordTitle}}".

1. Rewrite passages so they read in a warm, expert, first-person-plural voice while keeping every fact, link and heading.
2. Work the keyword "{{.Keyword}}" into the text naturally; never stuff it.
3. Append a section <h2>Frequently Asked Questions about {{.KeywordTitle}}</h2> with four to six questions a reader would search for, each as <h3> followed by a concise <p> answer.
4. Keep all existing HTML structure, including the screening tool section and its links.

Article (HTML):
{{.Content}}

Return the complete revised article as HTML.`

const finalizeSystemPrompt = "You are a senior SEO editor. You respond with a single JSON object and nothing else."

const finalizePrompt = `Finalize this article for search.

Target keyword: {{.Keyword}}
{{- if .SEOTitle}}
Preferred SEO title: {{.SEOTitle}}
{{- end}}

1. Polish headings and the introduction for the target keyword without removing content.
2. Make sure internal structure (h2/h3) is logical and the FAQ section is kept.
3. Write a meta title of at most 60 characters{{if .SEOTitle}} based on the preferred SEO title{{end}}.
4. Write a meta description of at most 155 characters that invites the click.

Article (HTML):
{{.Content}}

Respond with JSON exactly in this shape:
{"content": "<final article HTML>", "metaTitle": "<meta title>", "metaDescription": "<meta description>"}`
