/*
Package agentgraph runs graphs of LLM-backed agent nodes over a shared, per-run memory.

Nodes read named keys from memory, call a model, and write their outputs back. Every value
that reaches a prompt at runtime (memory contents, worker inputs, end-user text) is placed
inside a labelled block that tells the model to treat it as data, never as instructions.
Trusted text, such as system prompts and prompt templates, stays outside those blocks.

# Concept

A graph is an ordered list of nodes:

  - llm_generate nodes append their inputs to their system prompt as an INPUT DATA block
    and ask the model for their output keys as JSON.
  - worker nodes perform an action: an llm_call, whose inputs travel as an UNTRUSTED INPUT
    block in the user message, or a registered Go function.

The Engine persists memory after every node and serialises concurrent access to a run.

# Usage

	graph, err := file.LoadGraph("lead.yaml")
	if err != nil {
		log.Fatal(err)
	}

	llm, err := eino.NewOpenAI(ctx, eino.Config{Model: "gpt-4o-mini", APIKey: os.Getenv("OPENAI_API_KEY")})
	if err != nil {
		log.Fatal(err)
	}

	eng, err := agentgraph.New(graph, llm, agentgraph.WithStore(redis.NewFromClient(client)))
	if err != nil {
		log.Fatal(err)
	}

	res, err := eng.Run(ctx, "lead-42", map[string]any{
		"lead_name": "Acme Corp",
		"notes":     "Interested in enterprise plan",
	})
*/
package agentgraph
