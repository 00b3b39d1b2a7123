/*
Package runner drives an Engine from a terminal or a pipe.

Each line a user types is sanitised, turned into the graph's input keys and run. Lines that
are already JSON objects are used as-is; anything else goes through FormatNaturalLanguage,
which asks the model to extract the input keys while fencing the user's text as data.

# Usage

	r := runner.New(eng,
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
		runner.WithRunID("lead-42"),
	)

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
