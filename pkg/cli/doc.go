/*
Package cli provides helpers shared by the chronicle commands.

Exit codes:

	err := cmd.Execute()
	os.Exit(cli.ExitCode(err))

Usage and invalid-argument errors from the query builders, and configuration
errors, exit with status 2. Store failures and everything else exit with 1.

Raw query parameters are passed as repeated name=value flags:

	params, err := cli.ParseParams([]string{"state=COMPLETED", "tenant=acme"})

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
