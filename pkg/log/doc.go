// Package log provides structured logging for updatectl using zerolog.
//
// The global logger is initialized once via Init and read from every other
// package through the package-level helpers and With* constructors. Fields
// attached by With* helpers follow the component/server/operation axes used
// throughout the fleet-ops toolkit: which package logged, which target
// server the operation concerned, and which operation kind it was.
package log
