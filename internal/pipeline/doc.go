// Package pipeline sequences the four reconstruction stages against one
// working directory.
//
// DICOM conversion and DICOM regeneration run host binaries through the
// process supervisor; mask generation and reconstruction run inside the
// NiftyMIC container through the docker builder, with every path translated
// onto the container mount. A Pipeline keeps no record of what it has run:
// Stage inspects the directory on disk, and any operation may be invoked on
// any directory. Callers that want ordering enforced use Require.
//
// Each operation holds the working directory's lock while it runs, logs start
// and completion under a fresh request id, and reports the outcome to an
// optional Recorder. Failures abort immediately and leave partial output in
// place.
package pipeline
