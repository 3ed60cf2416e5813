// Package config loads the scheduler's settings from SCRY_* environment
// variables and an optional config.yaml. Every key has a default, so an empty
// environment plus a database URL and JWT secret is a valid setup. The srs
// section feeds srs.ParamsConfig; queue and rate_limit size the queue builder
// and the request limiters.
package config
