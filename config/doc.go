// Package config loads the server configuration from the environment.
//
// Values come from the process environment, falling back to a .env file.
// Each value may reference other variables as ${VAR}; a reference to an unset
// variable is an error rather than an empty string. Values of the form
// secretref:<provider>:<ref> are resolved through a SecretProvider:
//
//	DATABASE_URL=secretref:file:/run/secrets/database_url
//
// Load never fails on soft problems. Config.Warnings lists them so startup can
// log them.
package config
