// Package config loads the configuration of fuisce applications.
//
// Viper reads the first of config.yml, config.yaml or <name>.yml found in
// ".", "config", "instance" or "cmd/<name>", then the environment. A
// .env.<name> or .env file is loaded through godotenv first. Every key of the
// target struct is bound to its environment variable, so DATABASE_PATH sets
// database.path and SERVER_PORT sets server.port; WithEnvPrefix("BLOG")
// makes that BLOG_DATABASE_PATH.
//
//	cfg, err := config.Load("blog")
//
// Load applies the defaults and validates the result. LoadConfig fills any
// struct and leaves both to the caller.
package config
