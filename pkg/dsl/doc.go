/*
Package dsl provides a fluent Go builder for agent graphs.

It is the programmatic counterpart of YAML graph files: useful for tests, generated
graphs and IDE completion.

Example usage:

	b := dsl.New("lead-followup")

	b.Add("summarize").
		Generate("You are a summarizer.").
		Reads("lead_name", "notes").
		Writes("summary")

	b.Add("draft").
		Call("Draft a follow-up email to {{lead_name}}.", "You write concise sales emails.").
		Reads("lead_name", "summary").
		Writes("email")

	graph, err := b.Build()
*/
package dsl
