// Package mcpserver exposes the studies projections as MCP tools.
//
// One Server owns one set of projections, the equivalent of one open
// screen; every connected client of that server shares its selection.
package mcpserver
