// Package config loads typed configuration from environment variables.
//
// Structs declare their variables with caarlos0/env tags; Load fills them,
// optionally under a prefix, after loading .env files with godotenv. Results
// are cached per type and prefix so packages can call Load freely:
//
//	var cfg broker.Config
//	config.MustLoad(&cfg)
package config
