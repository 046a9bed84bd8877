// Package spool implements the filesystem channel between the bench tool and
// a simulated device. Wake stimuli travel as one JSON file per event: writers
// rename complete files into the spool directory, the device sweeps the
// backlog and then watches for new files, applying and deleting each one.
package spool
