// Package location persists the mapping from location names to absolute
// directory roots and resolves the symbolic paths used everywhere else in the
// engine.
//
// A symbolic path is "<LocationName>/<relative/posix/path>". Keeping physical
// roots out of the index means a disk can be remounted or renamed by editing
// locations.json alone; nothing else has to be rebuilt.
package location
