// Package cli builds the command line of a fuisce application with cobra.
//
//	func main() {
//	    cmd := cli.NewRootCommand(blog.NewApp, cli.WithName("blog"),
//	        cli.WithMigrations(blog.Migrations, "migrations"))
//	    if err := cmd.Execute(); err != nil {
//	        os.Exit(1)
//	    }
//	}
//
// The commands load the configuration of the app, build it through the
// factory and, unless it is a testing app, select the default interface,
// which is created from the configuration when the program did not create it.
package cli
