// Package mover relocates dataset files between storage locations.
//
// Selection is either an explicit folder list or a size budget; a size budget
// moves whole albums only, so a track never ends up with its components split
// across disks. Progress is tracked through the same operation-state files
// the synchronizer uses, so an interrupted move resumes the same way a sync
// does.
package mover
