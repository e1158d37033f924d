package summarize

import "strings"

// Headings are the required summary sections, in output order. The
// placeholder fallback carries all of them so a failed item still renders
// like a summary.
var Headings = []string{"Background:", "Holding:", "Reasoning:", "Outcome:"}

// promptPreamble is the fixed instruction block. Case metadata is banned
// from the output because the feed item already shows it.
const promptPreamble = `You are a careful legal editor. Do not invent facts; if missing, write 'Not stated.'
Write ~300 words total (260-340). Plain English but legally precise. Avoid long quotes.

IMPORTANT:
- Do NOT include the case name/caption, docket number, court name, decided date, or source URL.
- Do NOT start with 'In this case...' + caption. Assume metadata is shown elsewhere.

Output EXACTLY these headings, in this order:
Background:
Holding:
Reasoning:
Outcome:

Background should include procedural posture + what question the Court answered (if stated).
Holding should be 1-2 sentences.
Outcome must say affirmed/reversed/vacated/remanded and what happens next (if stated).

Source text:
`

// BuildPrompt embeds the extracted opinion text into the fixed template.
func BuildPrompt(extracted string) string {
	return promptPreamble + extracted
}

// Placeholder is the summary body published when summarization permanently
// fails: every required section present, followed by the error text.
func Placeholder(errText string) string {
	var b strings.Builder
	for _, h := range Headings {
		b.WriteString(h)
		b.WriteString("\nNot stated.\n\n")
	}
	b.WriteString("Error: ")
	b.WriteString(errText)
	return b.String()
}
