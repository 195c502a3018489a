// Package cache keeps assembled utterances on disk so repeated renders of the
// same text and voice skip synthesis.
package cache
