// Package config resolves the runtime configuration of mailgate from
// environment variables with documented defaults. A .env file in the
// working directory is honoured when present so the service can share
// one configuration surface with the surrounding agent workflow.
package config
