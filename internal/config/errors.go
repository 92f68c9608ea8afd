package config

import "errors"

// ErrNoDownstreamCommand is returned by Load when no downstream server
// command was given, either as a trailing "-- <command>" CLI argument or as
// downstream.command in a config file.
var ErrNoDownstreamCommand = errors.New("config: no downstream server command given")
