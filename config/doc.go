// Package config loads apikit configuration.
//
// It uses Viper to load configuration from a YAML file, an optional .env file
// and environment variables (in increasing order of precedence). Variables
// carrying the service prefix map onto nested keys, e.g.
// APIKIT_CREDENTIALS_CLIENT_SECRET overrides credentials.client_secret.
//
// # Usage
//
//	cfg, loader, err := config.Load("apikit", config.WithConfigFile("config.yml"))
//	store := cfg.Downstream.NewStore()
//	err = loader.Watch(store, nil) // republish options on file change
//
// Viper lower-cases keys, so downstream API names are lower case.
package config
