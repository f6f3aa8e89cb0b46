// Package interrupt reports other media players taking over audio.
//
// It watches MPRIS PropertiesChanged signals on the session bus. A player
// switching to Playing begins an interruption; Paused and Stopped end it.
// Audio focus is modelled as owning an MPRIS bus name while playing.
package interrupt
