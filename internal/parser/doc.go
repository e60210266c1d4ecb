// Package parser implements the two-phase command-line and ini option parser.
//
// Plugins declare options on a Parser through OptionGroups and declare ini keys
// with AddIni. Parsing happens in two distinct operations over the options
// registered at that moment:
//
//   - ParseKnownAndUnknownArgs is tolerant: flags nobody has declared yet are
//     handed back as leftovers. It runs during bootstrap, before every plugin
//     has contributed its options.
//   - ParseKnownArgs and ParseSetOption are strict and reject unknown flags.
//
// Results land in a Namespace, a typed record of the built-in destinations
// plus an Extra map for plugin destinations.
package parser
