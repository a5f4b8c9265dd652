// Package export renders a graph for its consumers: the schedule handed to
// a build scheduler, the full graph in JSON, YAML or CBOR, the markup
// script shape and a listing for people.
//
// Every dependency list is reduced to direct dependencies, and every
// function only reads the graph.
package export
