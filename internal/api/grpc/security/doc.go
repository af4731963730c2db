// Package security implements the gRPC transport for the security system.
//
// The service is registered by hand over protobuf well-known types: requests
// carry wrapped scalars and every call answers with the engine snapshot as a
// struct. It exposes a server that calls into a provided engine interface, a
// typed client, and helpers passing the requesting actor in call metadata.
package security
