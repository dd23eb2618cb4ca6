// Package preflight provides readiness checks for the host tools, container
// image, and filesystem paths niftymic depends on.
//
// The CLI "niftymic check" command runs RunAll and CheckSystemDeps and prints
// the results. Stage commands do not run these checks; a missing tool still
// surfaces as a spawn failure from the stage itself.
package preflight
